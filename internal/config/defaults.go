package config

const (
	defaultProjectDir           = "~/.local/share/openbst/project"
	defaultLogDir               = "~/.local/share/openbst/logs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultRawDecodingMethod    = "snippet_power_mean"
	defaultRawWindowSize        = 5
	defaultStaticGainMethod     = "reson_gain_selection"
	defaultSourceLevelMethod    = "reson_power_selection"
	defaultTVGMethod            = "datagram_curve"
	defaultTransmissionMethod   = "spherical"
	defaultAbsorptionDBPerKm    = 30.0
	defaultAreaCorrectionMethod = "flat_seafloor"
	defaultCalibrationMethod    = "none"
	defaultGeolocationMethod    = "flat_earth"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			LogDir:     defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		RawDecoding: RawDecoding{
			Method:     defaultRawDecodingMethod,
			WindowSize: defaultRawWindowSize,
		},
		StaticGain: StaticGain{
			Method: defaultStaticGainMethod,
		},
		SourceLevel: SourceLevel{
			Method: defaultSourceLevelMethod,
		},
		TVG: TVG{
			Method: defaultTVGMethod,
		},
		TransmissionLoss: TransmissionLoss{
			Method:               defaultTransmissionMethod,
			UseRuntimeAbsorption: true,
			AbsorptionDBPerKm:    defaultAbsorptionDBPerKm,
		},
		AreaCorrection: AreaCorrection{
			Method: defaultAreaCorrectionMethod,
		},
		Calibration: Calibration{
			Method: defaultCalibrationMethod,
		},
		Geolocation: Geolocation{
			Method: defaultGeolocationMethod,
		},
	}
}
