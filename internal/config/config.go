package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines sweeper configuration.
type Config struct {
	DB      DBConfig      `yaml:"db"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type SweepConfig struct {
	// Interval between scheduled passes.
	Interval time.Duration `yaml:"interval"`
	// ProjectID scopes the sweep to one project; empty sweeps all.
	ProjectID string `yaml:"project_id"`
	// DeliveryBatchSize bounds one delivery page.
	DeliveryBatchSize int `yaml:"delivery_batch_size"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		DB: DBConfig{
			Path: "cadence.db",
		},
		Sweep: SweepConfig{
			Interval:          time.Hour,
			DeliveryBatchSize: 100,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path := os.Getenv("CADENCE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("CADENCE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if interval := os.Getenv("CADENCE_SWEEP_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CADENCE_SWEEP_INTERVAL: %w", err)
		}
		cfg.Sweep.Interval = d
	}
	if projectID := os.Getenv("CADENCE_SWEEP_PROJECT_ID"); projectID != "" {
		cfg.Sweep.ProjectID = projectID
	}
	if sizeStr := os.Getenv("CADENCE_DELIVERY_BATCH_SIZE"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CADENCE_DELIVERY_BATCH_SIZE: %w", err)
		}
		cfg.Sweep.DeliveryBatchSize = size
	}
	if addr := os.Getenv("CADENCE_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
	if level := os.Getenv("CADENCE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if cfg.Sweep.Interval <= 0 {
		return Config{}, fmt.Errorf("sweep interval must be positive")
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
