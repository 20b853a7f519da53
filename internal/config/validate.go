package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Method names are checked by
// the correction library when a request is built.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateRawDecoding(); err != nil {
		return err
	}
	if err := c.validateTransmissionLoss(); err != nil {
		return err
	}
	if err := c.validateCalibration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateRawDecoding() error {
	if c.RawDecoding.WindowSize <= 0 {
		return errors.New("raw_decoding.window_size must be positive")
	}
	return nil
}

func (c *Config) validateTransmissionLoss() error {
	if c.TransmissionLoss.AbsorptionDBPerKm < 0 {
		return errors.New("transmission_loss.absorption_db_per_km must not be negative")
	}
	return nil
}

func (c *Config) validateCalibration() error {
	angles, offsets := c.Calibration.AnglesDeg, c.Calibration.OffsetsDB
	if len(angles) != len(offsets) {
		return fmt.Errorf("calibration.angles_deg has %d values but calibration.offsets_db has %d", len(angles), len(offsets))
	}
	if c.Calibration.Method == "curve" && len(angles) < 2 {
		return errors.New("calibration.method curve needs at least two curve points")
	}
	for i := 1; i < len(angles); i++ {
		if angles[i] <= angles[i-1] {
			return fmt.Errorf("calibration.angles_deg must be strictly increasing (index %d)", i)
		}
	}
	return nil
}
