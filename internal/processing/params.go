package processing

import (
	"fmt"
	"strings"

	"openbst/internal/config"
	"openbst/internal/corrections"
	"openbst/internal/identity"
	"openbst/internal/services"
)

// ParametersFromConfig builds the parameter object for kind from the
// configured defaults. A non-empty method replaces the configured method.
func ParametersFromConfig(cfg *config.Config, kind identity.Kind, method string) (corrections.Params, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "processing", "parameters", "configuration unavailable", nil)
	}
	pick := func(configured string) string {
		if m := strings.TrimSpace(method); m != "" {
			return strings.ReplaceAll(strings.ToLower(m), "-", "_")
		}
		return configured
	}

	var params corrections.Params
	switch kind {
	case identity.KindRawDecoding:
		params = corrections.RawDecodeParams{
			Method:     corrections.RawDecodeMethod(pick(cfg.RawDecoding.Method)),
			UseWindow:  cfg.RawDecoding.UseWindow,
			WindowSize: cfg.RawDecoding.WindowSize,
		}
	case identity.KindStaticGain:
		params = corrections.StaticGainParams{
			Method:      corrections.StaticGainMethod(pick(cfg.StaticGain.Method)),
			FixedGainDB: cfg.StaticGain.FixedGainDB,
		}
	case identity.KindSourceLevel:
		params = corrections.SourceLevelParams{
			Method:             corrections.SourceLevelMethod(pick(cfg.SourceLevel.Method)),
			FixedSourceLevelDB: cfg.SourceLevel.FixedSourceLevelDB,
		}
	case identity.KindTVGGain:
		params = corrections.TVGParams{Method: corrections.TVGMethod(pick(cfg.TVG.Method))}
	case identity.KindTransmissionLoss:
		params = corrections.TransmissionLossParams{
			Method:               corrections.TransmissionLossMethod(pick(cfg.TransmissionLoss.Method)),
			UseRuntimeAbsorption: cfg.TransmissionLoss.UseRuntimeAbsorption,
			AbsorptionDBPerKm:    cfg.TransmissionLoss.AbsorptionDBPerKm,
		}
	case identity.KindAreaCorrection:
		params = corrections.AreaParams{Method: corrections.AreaMethod(pick(cfg.AreaCorrection.Method))}
	case identity.KindCalibration:
		params = corrections.CalibrationParams{
			Method:    corrections.CalibrationMethod(pick(cfg.Calibration.Method)),
			AnglesDeg: append([]float64(nil), cfg.Calibration.AnglesDeg...),
			OffsetsDB: append([]float64(nil), cfg.Calibration.OffsetsDB...),
		}
	case identity.KindGeolocation:
		params = corrections.GeolocationParams{Method: corrections.GeolocationMethod(pick(cfg.Geolocation.Method))}
	default:
		return nil, services.Wrap(services.ErrValidation, "processing", "parameters",
			fmt.Sprintf("unknown processing kind %q", kind), nil)
	}

	if err := corrections.Validate(params); err != nil {
		return nil, err
	}
	return params, nil
}
