package testsupport

import (
	"path/filepath"
	"testing"

	"openbst/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ProjectDir = filepath.Join(base, "project")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.Level = "debug"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWindow enables window averaging for raw decoding.
func WithWindow(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.RawDecoding.UseWindow = true
		b.cfg.RawDecoding.WindowSize = size
	}
}

// WithCalibrationCurve installs an angular calibration curve.
func WithCalibrationCurve(anglesDeg, offsetsDB []float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Calibration.Method = "curve"
		b.cfg.Calibration.AnglesDeg = anglesDeg
		b.cfg.Calibration.OffsetsDB = offsetsDB
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ProjectDir)
}
