package corrections

import (
	"context"
	"errors"
	"fmt"

	"openbst/internal/grid"
	"openbst/internal/identity"
	"openbst/internal/services"
)

// Output variable names shared between steps.
const (
	VarBackscatter      = "backscatter_data"
	VarPingTime         = "ping_time"
	VarDetectionRange   = "detection_range"
	VarDetectionAngle   = "detection_angle"
	VarFrequency        = "frequency"
	VarSampleRate       = "sample_rate"
	VarSoundVelocity    = "sound_velocity"
	VarAbsorption       = "absorption"
	VarSpreading        = "spreading"
	VarPowerSelection   = "power_selection"
	VarGainSelection    = "gain_selection"
	VarPulseWidth       = "pulse_width"
	VarRxBeamwidth      = "rx_beamwidth"
	VarTxBeamwidth      = "tx_beamwidth"
	VarTVGGain          = "tvg_gain"
	VarLatitude         = "latitude"
	VarLongitude        = "longitude"
	VarHeading          = "heading"
	VarRoll             = "roll"
	VarTVGCurve         = "tvg_curve"
	VarTransmissionLoss = "transmission_loss"
	VarAreaBeam         = "area_beam_limited"
	VarAreaPulse        = "area_pulse_limited"
	VarAreaCorrection   = "area_correction"
	VarCalibration      = "calibration_offset"
	VarBeamLatitude     = "beam_latitude"
	VarBeamLongitude    = "beam_longitude"
)

// ErrMissingInput indicates an upstream variable was not found in the
// ancestor chain. It is a soft failure: the step is not computed.
var ErrMissingInput = errors.New("missing upstream data")

// VariableLookup finds a variable produced by the current node or one of its
// ancestors. It returns nil when no ancestor holds the variable.
type VariableLookup func(ctx context.Context, name string) (*grid.Grid, error)

// Input is handed to every method.
type Input struct {
	// Survey holds the raw pings; only raw decoding reads it.
	Survey *Survey
	// Find resolves upstream variables, including the prior backscatter.
	Find VariableLookup
}

// Output maps variable names to result grids. It always holds VarBackscatter.
type Output map[string]*grid.Grid

// Method computes one correction.
type Method func(ctx context.Context, in Input, params Params) (Output, error)

type registryKey struct {
	kind   identity.Kind
	method string
}

var registry = map[registryKey]Method{
	{identity.KindRawDecoding, string(RawSnippetPowerMean)}:            decodeRaw,
	{identity.KindRawDecoding, string(RawDetectionSample)}:             decodeRaw,
	{identity.KindStaticGain, string(StaticGainResonSelection)}:        staticGain,
	{identity.KindStaticGain, string(StaticGainFixed)}:                 staticGain,
	{identity.KindSourceLevel, string(SourceLevelResonSelection)}:      sourceLevel,
	{identity.KindSourceLevel, string(SourceLevelFixed)}:               sourceLevel,
	{identity.KindTVGGain, string(TVGDatagramCurve)}:                   tvgDatagramCurve,
	{identity.KindTVGGain, string(TVGLambertComputed)}:                 tvgLambert,
	{identity.KindTransmissionLoss, string(TransmissionLossSpherical)}: transmissionLossSpherical,
	{identity.KindAreaCorrection, string(AreaFlatSeafloor)}:            areaCorrection,
	{identity.KindAreaCorrection, string(AreaBeamLimited)}:             areaCorrection,
	{identity.KindAreaCorrection, string(AreaPulseLimited)}:            areaCorrection,
	{identity.KindCalibration, string(CalibrationNone)}:                calibrationNone,
	{identity.KindCalibration, string(CalibrationCurve)}:               calibrationCurve,
	{identity.KindGeolocation, string(GeolocationFlatEarth)}:           geolocateFlatEarth,
}

// Lookup returns the method registered for kind and method name.
func Lookup(kind identity.Kind, method string) (Method, error) {
	fn, ok := registry[registryKey{kind: kind, method: normalizeMethod(method)}]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "corrections", "lookup",
			fmt.Sprintf("no method %q for %s (available: %v)", method, kind, Methods(kind)), nil)
	}
	return fn, nil
}

// Apply runs the registered method for params.
func Apply(ctx context.Context, in Input, params Params) (Output, error) {
	fn, err := Lookup(params.Kind(), params.MethodName())
	if err != nil {
		return nil, err
	}
	out, err := fn(ctx, in, params)
	if err != nil {
		return nil, err
	}
	if out[VarBackscatter] == nil {
		return nil, fmt.Errorf("%s produced no %s", params.Kind(), VarBackscatter)
	}
	return out, nil
}

func require(ctx context.Context, in Input, names ...string) ([]*grid.Grid, error) {
	if in.Find == nil {
		return nil, fmt.Errorf("%w: no ancestor lookup", ErrMissingInput)
	}
	out := make([]*grid.Grid, len(names))
	for i, name := range names {
		g, err := in.Find(ctx, name)
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, name)
		}
		out[i] = g
	}
	return out, nil
}
