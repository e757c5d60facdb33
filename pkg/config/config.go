// Package config provides configuration loading and management for degan.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/code4indo/DE-GAN/internal/models"
)

// Predictor backends understood by predictor.Load.
const (
	BackendHTTP     = "http"
	BackendONNX     = "onnx"
	BackendIdentity = "identity"
)

// DefaultTileSize is the edge length of the square tiles fed to the predictor.
const DefaultTileSize = 256

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// TileSize is the edge length of every tile the predictor sees
		TileSize int `yaml:"tileSize"`

		// TileWorkers bounds how many tiles of one image are predicted at once.
		// 1 keeps the strictly sequential behaviour.
		TileWorkers int `yaml:"tileWorkers"`

		// ClampOutput clamps predictor output into [0,1] before 8-bit conversion
		ClampOutput bool `yaml:"clampOutput"`
	} `yaml:"processing"`

	// Predictor parameters
	Predictor struct {
		// Backend selects the predictor implementation: http, onnx or identity
		Backend string `yaml:"backend"`

		// Endpoint is the base URL of the model server for the http backend
		Endpoint string `yaml:"endpoint"`

		// Timeout bounds a single tile request for the http backend
		Timeout time.Duration `yaml:"timeout"`

		// UseCUDA asks the onnx backend to run on a CUDA device
		UseCUDA bool `yaml:"useCUDA"`

		// ConcurrentSafe declares that the backend may be called from several
		// goroutines. When false, calls are serialized.
		ConcurrentSafe bool `yaml:"concurrentSafe"`

		// Models maps a task name to its weight file
		Models map[string]string `yaml:"models"`
	} `yaml:"predictor"`

	// Output parameters
	Output struct {
		// WriteReport controls whether the JSON batch report is persisted
		WriteReport bool `yaml:"writeReport"`

		// SaveIntermediaryResults determines whether to save intermediary processing results
		SaveIntermediaryResults bool `yaml:"saveIntermediaryResults"`

		// IntermediaryDir is where intermediary results are written
		IntermediaryDir string `yaml:"intermediaryDir"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"logging"`

	// Server parameters for `degan serve`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.TileSize = DefaultTileSize
	cfg.Processing.TileWorkers = 1
	cfg.Processing.ClampOutput = true

	cfg.Predictor.Backend = BackendHTTP
	cfg.Predictor.Endpoint = "http://localhost:8000"
	cfg.Predictor.Timeout = 30 * time.Second
	cfg.Predictor.ConcurrentSafe = true
	cfg.Predictor.Models = map[string]string{
		string(models.TaskBinarize):    "weights/binarization_generator_weights.onnx",
		string(models.TaskDeblur):      "weights/deblur_weights.onnx",
		string(models.TaskUnwatermark): "weights/watermark_rem_weights.onnx",
	}

	cfg.Output.WriteReport = true
	cfg.Output.SaveIntermediaryResults = false
	cfg.Output.IntermediaryDir = "intermediary_results"

	cfg.Logging.Level = "info"

	cfg.Server.Addr = ":8080"

	return cfg
}

// Validate checks the values a run cannot start without.
func (c *Config) Validate() error {
	if c.Processing.TileSize <= 0 {
		return &models.ConfigurationError{Reason: fmt.Sprintf("tileSize must be positive, got %d", c.Processing.TileSize)}
	}
	if c.Processing.TileWorkers < 1 {
		return &models.ConfigurationError{Reason: fmt.Sprintf("tileWorkers must be at least 1, got %d", c.Processing.TileWorkers)}
	}
	switch c.Predictor.Backend {
	case BackendHTTP:
		if c.Predictor.Endpoint == "" {
			return &models.ConfigurationError{Reason: "http backend requires an endpoint"}
		}
	case BackendONNX, BackendIdentity:
	default:
		return &models.ConfigurationError{Reason: fmt.Sprintf("unknown predictor backend %q", c.Predictor.Backend)}
	}
	if c.Output.SaveIntermediaryResults && c.Output.IntermediaryDir == "" {
		return &models.ConfigurationError{Reason: "saveIntermediaryResults requires intermediaryDir"}
	}
	return nil
}

// ModelPath returns the weight file configured for task.
func (c *Config) ModelPath(task models.Task) (string, error) {
	path, ok := c.Predictor.Models[string(task)]
	if !ok || path == "" {
		return "", &models.ConfigurationError{Reason: fmt.Sprintf("no weights configured for task %q", task)}
	}
	return path, nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &models.ConfigurationError{Reason: "error reading config file", Err: err}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &models.ConfigurationError{Reason: "error parsing config file", Err: err}
	}

	return cfg, nil
}

// SaveConfig writes cfg as YAML, creating the parent directory.
func SaveConfig(cfg *Config, configPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return &models.ConfigurationError{Reason: "encode config", Err: err}
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &models.IOError{Op: "create config directory", Path: dir, Err: err}
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return &models.IOError{Op: "write config", Path: configPath, Err: err}
	}
	return nil
}

// CreateDefaultConfigFile writes the defaults to configPath. An existing file
// is left alone.
func CreateDefaultConfigFile(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return &models.ConfigurationError{Reason: fmt.Sprintf("config file %s already exists", configPath)}
	}
	return SaveConfig(DefaultConfig(), configPath)
}
