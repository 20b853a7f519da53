package corrections

import (
	"fmt"
	"sort"
	"strings"

	"openbst/internal/identity"
)

// Params is implemented by every per-kind parameter object.
type Params interface {
	identity.Parameters
	MethodName() string
}

// Identifiers returns the (kind, hash) identity of p.
func Identifiers(p Params) (identity.Identity, error) {
	return identity.Of(p)
}

// Attributes returns p's settings as node attributes.
func Attributes(p Params) (map[string]string, error) {
	return identity.Attributes(p)
}

// RawDecodeMethod selects how per-beam backscatter is read from the raw data.
type RawDecodeMethod string

const (
	RawSnippetPowerMean RawDecodeMethod = "snippet_power_mean"
	RawDetectionSample  RawDecodeMethod = "detection_sample"
)

func (m RawDecodeMethod) String() string { return string(m) }

// RawDecodeParams configures raw backscatter decoding. Source fingerprints
// the container being decoded so a different file never matches an
// existing node.
type RawDecodeParams struct {
	Method     RawDecodeMethod `param:"method_type"`
	UseWindow  bool            `param:"use_window"`
	WindowSize int             `param:"window_size"`
	Source     string          `param:"raw_source"`
}

func (RawDecodeParams) Kind() identity.Kind { return identity.KindRawDecoding }
func (p RawDecodeParams) MethodName() string { return string(p.Method) }

// StaticGainMethod selects the receiver gain removed from backscatter.
type StaticGainMethod string

const (
	StaticGainResonSelection StaticGainMethod = "reson_gain_selection"
	StaticGainFixed          StaticGainMethod = "fixed"
)

func (m StaticGainMethod) String() string { return string(m) }

// StaticGainParams configures static gain compensation.
type StaticGainParams struct {
	Method      StaticGainMethod `param:"method_type"`
	FixedGainDB float64          `param:"fixed_gain_db"`
}

func (StaticGainParams) Kind() identity.Kind { return identity.KindStaticGain }
func (p StaticGainParams) MethodName() string { return string(p.Method) }

// SourceLevelMethod selects the transmit source level removed from backscatter.
type SourceLevelMethod string

const (
	SourceLevelResonSelection SourceLevelMethod = "reson_power_selection"
	SourceLevelFixed          SourceLevelMethod = "fixed"
)

func (m SourceLevelMethod) String() string { return string(m) }

// SourceLevelParams configures source level compensation.
type SourceLevelParams struct {
	Method             SourceLevelMethod `param:"method_type"`
	FixedSourceLevelDB float64           `param:"fixed_source_level_db"`
}

func (SourceLevelParams) Kind() identity.Kind { return identity.KindSourceLevel }
func (p SourceLevelParams) MethodName() string { return string(p.Method) }

// TVGMethod selects where the time-varying gain curve comes from.
type TVGMethod string

const (
	TVGDatagramCurve   TVGMethod = "datagram_curve"
	TVGLambertComputed TVGMethod = "lambert_computed"
)

func (m TVGMethod) String() string { return string(m) }

// TVGParams configures time-varying gain compensation.
type TVGParams struct {
	Method TVGMethod `param:"method_type"`
}

func (TVGParams) Kind() identity.Kind { return identity.KindTVGGain }
func (p TVGParams) MethodName() string { return string(p.Method) }

// TransmissionLossMethod selects the propagation loss model.
type TransmissionLossMethod string

const (
	TransmissionLossSpherical TransmissionLossMethod = "spherical"
)

func (m TransmissionLossMethod) String() string { return string(m) }

// TransmissionLossParams configures transmission loss compensation.
type TransmissionLossParams struct {
	Method               TransmissionLossMethod `param:"method_type"`
	UseRuntimeAbsorption bool                   `param:"use_runtime_absorption"`
	AbsorptionDBPerKm    float64                `param:"absorption_db_per_km"`
}

func (TransmissionLossParams) Kind() identity.Kind { return identity.KindTransmissionLoss }
func (p TransmissionLossParams) MethodName() string { return string(p.Method) }

// AreaMethod selects the ensonified area model.
type AreaMethod string

const (
	AreaFlatSeafloor AreaMethod = "flat_seafloor"
	AreaBeamLimited  AreaMethod = "beam_limited"
	AreaPulseLimited AreaMethod = "pulse_limited"
)

func (m AreaMethod) String() string { return string(m) }

// AreaParams configures ensonified area correction.
type AreaParams struct {
	Method AreaMethod `param:"method_type"`
}

func (AreaParams) Kind() identity.Kind { return identity.KindAreaCorrection }
func (p AreaParams) MethodName() string { return string(p.Method) }

// CalibrationMethod selects the angular calibration applied last.
type CalibrationMethod string

const (
	CalibrationNone  CalibrationMethod = "none"
	CalibrationCurve CalibrationMethod = "curve"
)

func (m CalibrationMethod) String() string { return string(m) }

// CalibrationParams configures angular calibration. Offsets are subtracted
// from backscatter at the matching incidence angle.
type CalibrationParams struct {
	Method    CalibrationMethod `param:"method_type"`
	AnglesDeg []float64         `param:"angles_deg"`
	OffsetsDB []float64         `param:"offsets_db"`
}

func (CalibrationParams) Kind() identity.Kind { return identity.KindCalibration }
func (p CalibrationParams) MethodName() string { return string(p.Method) }

// GeolocationMethod selects how beam footprints are positioned.
type GeolocationMethod string

const (
	GeolocationFlatEarth GeolocationMethod = "flat_earth"
)

func (m GeolocationMethod) String() string { return string(m) }

// GeolocationParams configures beam geolocation.
type GeolocationParams struct {
	Method GeolocationMethod `param:"method_type"`
}

func (GeolocationParams) Kind() identity.Kind { return identity.KindGeolocation }
func (p GeolocationParams) MethodName() string { return string(p.Method) }

// Methods lists the method names registered for kind.
func Methods(kind identity.Kind) []string {
	var out []string
	for key := range registry {
		if key.kind == kind {
			out = append(out, key.method)
		}
	}
	sort.Strings(out)
	return out
}

// Validate reports whether p names a registered method.
func Validate(p Params) error {
	if _, err := Lookup(p.Kind(), p.MethodName()); err != nil {
		return err
	}
	if rp, ok := p.(RawDecodeParams); ok && rp.UseWindow && rp.WindowSize <= 0 {
		return fmt.Errorf("raw decoding window_size must be positive when use_window is set")
	}
	if cp, ok := p.(CalibrationParams); ok && cp.Method == CalibrationCurve {
		if len(cp.AnglesDeg) != len(cp.OffsetsDB) || len(cp.AnglesDeg) < 2 {
			return fmt.Errorf("calibration curve needs matching angles and offsets with at least two points")
		}
	}
	return nil
}

func normalizeMethod(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "-", "_")
}
