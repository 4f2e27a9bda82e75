package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is loaded once at startup from config.yaml plus environment
// overrides, and treated as read-only for the process lifetime.
type Config struct {
	ModelPath            string  `yaml:"modelPath"`
	ConfidenceThreshold  float32 `yaml:"confidenceThreshold"`
	IouThreshold         float32 `yaml:"iouThreshold"`
	ProcessingResolution int     `yaml:"processingResolution"`
	HTTPPort             int     `yaml:"httpPort"`
	MetricsPort          int     `yaml:"metricsPort"`
	MaxUploadBytes       int64   `yaml:"maxUploadBytes"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ModelPath:            "model/microplastics_best.onnx",
		ConfidenceThreshold:  0.25,
		IouThreshold:         0.45,
		ProcessingResolution: 640,
		HTTPPort:             5000,
		MetricsPort:          50053,
		MaxUploadBytes:       16 << 20,
	}
}

// Load reads the YAML config at path, applies environment overrides and
// validates the result. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.ConfidenceThreshold = float32(f)
		}
	}
	if v := os.Getenv("IOU_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.IouThreshold = float32(f)
		}
	}
	if v := os.Getenv("IMAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ProcessingResolution = n
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = n
		}
	}
}

// Validate checks threshold and size bounds.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be between 0.0 and 1.0, got %f", c.ConfidenceThreshold)
	}
	if c.IouThreshold < 0 || c.IouThreshold > 1 {
		return fmt.Errorf("IoU threshold must be between 0.0 and 1.0, got %f", c.IouThreshold)
	}
	if c.ProcessingResolution <= 0 {
		return fmt.Errorf("processing resolution must be positive, got %d", c.ProcessingResolution)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
