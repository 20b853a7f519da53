package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"openbst/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantProject := filepath.Join(tempHome, ".local", "share", "openbst", "project")
	if cfg.Paths.ProjectDir != wantProject {
		t.Fatalf("unexpected project dir: got %q want %q", cfg.Paths.ProjectDir, wantProject)
	}
	if cfg.StorePath() != filepath.Join(wantProject, "project.db") {
		t.Fatalf("unexpected store path: %q", cfg.StorePath())
	}
	if cfg.RawDecoding.Method != "snippet_power_mean" {
		t.Fatalf("unexpected raw decoding method: %q", cfg.RawDecoding.Method)
	}
	if cfg.RawDecoding.UseWindow {
		t.Fatal("expected window averaging off by default")
	}
	if !cfg.TransmissionLoss.UseRuntimeAbsorption {
		t.Fatal("expected runtime absorption on by default")
	}
}

func TestLoadCustomConfigNormalizes(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "openbst.toml")
	content := `
[paths]
project_dir = "~/survey"

[logging]
format = " JSON "
level = "DEBUG"

[raw_decoding]
method = "Detection-Sample"
use_window = true
window_size = 9

[calibration]
method = "curve"
angles_deg = [-60.0, 0.0, 60.0]
offsets_db = [1.5, 0.0, 1.5]
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.ProjectDir != filepath.Join(tempHome, "survey") {
		t.Fatalf("unexpected project dir: %q", cfg.Paths.ProjectDir)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.RawDecoding.Method != "detection_sample" {
		t.Fatalf("expected canonical method name, got %q", cfg.RawDecoding.Method)
	}
	if !cfg.RawDecoding.UseWindow || cfg.RawDecoding.WindowSize != 9 {
		t.Fatalf("unexpected raw decoding config: %+v", cfg.RawDecoding)
	}
	if len(cfg.Calibration.AnglesDeg) != 3 {
		t.Fatalf("unexpected calibration curve: %+v", cfg.Calibration)
	}
}

func TestProjectDirEnvironmentOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	override := t.TempDir()
	t.Setenv("OPENBST_PROJECT_DIR", override)

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.ProjectDir != override {
		t.Fatalf("expected env override %q, got %q", override, cfg.Paths.ProjectDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"window size", func(c *config.Config) { c.RawDecoding.WindowSize = 0 }, "window_size"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"absorption", func(c *config.Config) { c.TransmissionLoss.AbsorptionDBPerKm = -1 }, "absorption"},
		{"curve lengths", func(c *config.Config) {
			c.Calibration.AnglesDeg = []float64{0, 10}
			c.Calibration.OffsetsDB = []float64{1}
		}, "offsets_db"},
		{"curve order", func(c *config.Config) {
			c.Calibration.Method = "curve"
			c.Calibration.AnglesDeg = []float64{10, 0}
			c.Calibration.OffsetsDB = []float64{1, 1}
		}, "strictly increasing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if cfg.Geolocation.Method != "flat_earth" {
		t.Fatalf("unexpected geolocation method in sample: %q", cfg.Geolocation.Method)
	}
}
