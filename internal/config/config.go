package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	ProjectDir string `toml:"project_dir"`
	LogDir     string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// RawDecoding holds the default parameters for raw backscatter decoding.
type RawDecoding struct {
	Method     string `toml:"method"`
	UseWindow  bool   `toml:"use_window"`
	WindowSize int    `toml:"window_size"`
}

// StaticGain holds the default parameters for static gain compensation.
type StaticGain struct {
	Method      string  `toml:"method"`
	FixedGainDB float64 `toml:"fixed_gain_db"`
}

// SourceLevel holds the default parameters for source level compensation.
type SourceLevel struct {
	Method             string  `toml:"method"`
	FixedSourceLevelDB float64 `toml:"fixed_source_level_db"`
}

// TVG holds the default parameters for time-varying gain compensation.
type TVG struct {
	Method string `toml:"method"`
}

// TransmissionLoss holds the default parameters for transmission loss compensation.
type TransmissionLoss struct {
	Method               string  `toml:"method"`
	UseRuntimeAbsorption bool    `toml:"use_runtime_absorption"`
	AbsorptionDBPerKm    float64 `toml:"absorption_db_per_km"`
}

// AreaCorrection holds the default parameters for ensonified area correction.
type AreaCorrection struct {
	Method string `toml:"method"`
}

// Calibration holds the default angular calibration curve.
type Calibration struct {
	Method    string    `toml:"method"`
	AnglesDeg []float64 `toml:"angles_deg"`
	OffsetsDB []float64 `toml:"offsets_db"`
}

// Geolocation holds the default parameters for beam geolocation.
type Geolocation struct {
	Method string `toml:"method"`
}

// Config encapsulates all configuration values for openbst.
//
// Configuration sections:
//   - Paths: project (node store) and log directories
//   - Logging: log format and level
//   - RawDecoding ... Geolocation: default parameters per correction kind
type Config struct {
	Paths            Paths            `toml:"paths"`
	Logging          Logging          `toml:"logging"`
	RawDecoding      RawDecoding      `toml:"raw_decoding"`
	StaticGain       StaticGain       `toml:"static_gain"`
	SourceLevel      SourceLevel      `toml:"source_level"`
	TVG              TVG              `toml:"tvg"`
	TransmissionLoss TransmissionLoss `toml:"transmission_loss"`
	AreaCorrection   AreaCorrection   `toml:"area_correction"`
	Calibration      Calibration      `toml:"calibration"`
	Geolocation      Geolocation      `toml:"geolocation"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/openbst/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("openbst.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the project and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ProjectDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the location of the project's node store database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.ProjectDir, "project.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
