package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sandr0x00/mijia/internal/climate"
	"github.com/Sandr0x00/mijia/internal/storage"
)

// Settings holds the runtime settings of the recorder.
type Settings struct {
	Devices    string        `yaml:"devices"`
	LogsDir    string        `yaml:"logs_dir"`
	StaleAfter time.Duration `yaml:"stale_after"`
	Storage    StorageConfig `yaml:"storage"`
	Logging    LoggingConfig `yaml:"logging"`
}

// StorageConfig configures the event store.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	// Timeout bounds every schema or append operation.
	Timeout     time.Duration `yaml:"timeout"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// LoggingConfig configures the log sink.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultSettings returns the settings used when no file is given.
func DefaultSettings() *Settings {
	return &Settings{
		Devices:    "config.json",
		LogsDir:    "logs",
		StaleAfter: climate.DefaultStaleThreshold,
		Storage: StorageConfig{
			Driver:      storage.DriverModernc,
			Timeout:     5 * time.Second,
			BusyTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "error.log",
		},
	}
}

// LoadSettings reads the YAML settings file, applies environment overrides
// and validates the result. An empty path yields the defaults.
func LoadSettings(path string) (*Settings, error) {
	cfg := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Path: path, Err: fmt.Errorf("parsing settings: %w", err)}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Settings) {
	if v := os.Getenv("MIJIA_DEVICES"); v != "" {
		cfg.Devices = v
	}
	if v := os.Getenv("MIJIA_LOGS_DIR"); v != "" {
		cfg.LogsDir = v
	}
	if v := os.Getenv("MIJIA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the settings for values the recorder cannot run with.
func (s *Settings) Validate() error {
	var errs []error

	if s.Devices == "" {
		errs = append(errs, errors.New("devices path is required"))
	}
	if s.LogsDir == "" {
		errs = append(errs, errors.New("logs_dir is required"))
	}
	if !storage.IsSupportedDriver(s.Storage.Driver) {
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", s.Storage.Driver))
	}
	if s.Storage.Timeout <= 0 {
		errs = append(errs, errors.New("storage timeout must be positive"))
	}
	if s.Storage.BusyTimeout < 0 {
		errs = append(errs, errors.New("storage busy_timeout must not be negative"))
	}
	if s.StaleAfter <= 0 {
		errs = append(errs, errors.New("stale_after must be positive"))
	}
	switch strings.ToLower(s.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unsupported log format %q", s.Logging.Format))
	}

	return errors.Join(errs...)
}
