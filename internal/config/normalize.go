package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeMethods()
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.ProjectDir) == "" {
		c.Paths.ProjectDir = defaultProjectDir
	}
	if value, ok := os.LookupEnv("OPENBST_PROJECT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ProjectDir = strings.TrimSpace(value)
	}
	var err error
	if c.Paths.ProjectDir, err = expandPath(c.Paths.ProjectDir); err != nil {
		return fmt.Errorf("paths.project_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMethods() {
	c.RawDecoding.Method = methodOrDefault(c.RawDecoding.Method, defaultRawDecodingMethod)
	c.StaticGain.Method = methodOrDefault(c.StaticGain.Method, defaultStaticGainMethod)
	c.SourceLevel.Method = methodOrDefault(c.SourceLevel.Method, defaultSourceLevelMethod)
	c.TVG.Method = methodOrDefault(c.TVG.Method, defaultTVGMethod)
	c.TransmissionLoss.Method = methodOrDefault(c.TransmissionLoss.Method, defaultTransmissionMethod)
	c.AreaCorrection.Method = methodOrDefault(c.AreaCorrection.Method, defaultAreaCorrectionMethod)
	c.Calibration.Method = methodOrDefault(c.Calibration.Method, defaultCalibrationMethod)
	c.Geolocation.Method = methodOrDefault(c.Geolocation.Method, defaultGeolocationMethod)
}

// methodOrDefault canonicalizes method names: lower case, hyphens as underscores.
func methodOrDefault(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.ReplaceAll(value, "-", "_")
	if value == "" {
		return fallback
	}
	return value
}
