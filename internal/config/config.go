// Package config provides configuration loading for triadd.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete triadd configuration. Loaded once at process
// start; never re-read mid-task.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Observer  ObserverConfig  `koanf:"observer"`
	Task      TaskConfig      `koanf:"task"`
	Logging   LoggingConfig   `koanf:"logging"`
	Prompts   PromptsConfig   `koanf:"prompts"`
	Worklog   WorklogConfig   `koanf:"worklog"`
	Debug     DebugConfig     `koanf:"debug"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig identifies the MCP server implementation.
type ServerConfig struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// ObserverConfig points at the local Observer model's OpenAI-compatible
// endpoint and carries the default sampling options.
type ObserverConfig struct {
	BaseURL  string         `koanf:"base_url"`
	Model    string         `koanf:"model"`
	APIKey   string         `koanf:"api_key"`
	Timeout  time.Duration  `koanf:"timeout"`
	Sampling SamplingConfig `koanf:"sampling"`
}

// SamplingConfig holds text-generation sampling options.
type SamplingConfig struct {
	Temperature   float64 `koanf:"temperature"`
	TopK          int     `koanf:"top_k"`
	TopP          float64 `koanf:"top_p"`
	MinP          float64 `koanf:"min_p"`
	RepeatPenalty float64 `koanf:"repeat_penalty"`
	MaxTokens     int     `koanf:"max_tokens"`
}

// TaskConfig bounds the review loop.
type TaskConfig struct {
	MaxIterations int `koanf:"max_iterations"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// PromptsConfig controls prompt template overrides.
type PromptsConfig struct {
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

// WorklogConfig controls the on-disk audit trail.
type WorklogConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// DebugConfig controls the optional debug HTTP server exposing /health
// and /metrics.
type DebugConfig struct {
	Enabled bool   `koanf:"enabled"`
	Host    string `koanf:"host"`
	Port    int    `koanf:"port"`
}

// TelemetryConfig controls OTLP metrics export. Disabled by default;
// most deployments run without a collector.
type TelemetryConfig struct {
	Enabled        bool          `koanf:"enabled"`
	Endpoint       string        `koanf:"endpoint"`
	Protocol       string        `koanf:"protocol"`
	Insecure       bool          `koanf:"insecure"`
	ExportInterval time.Duration `koanf:"export_interval"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Name == "" {
		cfg.Server.Name = "triadd"
	}
	if cfg.Server.Version == "" {
		cfg.Server.Version = "1.0.0"
	}

	if cfg.Observer.BaseURL == "" {
		cfg.Observer.BaseURL = "http://localhost:8000/v1"
	}
	if cfg.Observer.Model == "" {
		cfg.Observer.Model = "observer"
	}
	if cfg.Observer.Timeout == 0 {
		cfg.Observer.Timeout = 30 * time.Second
	}
	if cfg.Observer.Sampling.Temperature == 0 {
		cfg.Observer.Sampling.Temperature = 0.65
	}
	if cfg.Observer.Sampling.TopK == 0 {
		cfg.Observer.Sampling.TopK = 40
	}
	if cfg.Observer.Sampling.TopP == 0 {
		cfg.Observer.Sampling.TopP = 0.9
	}
	if cfg.Observer.Sampling.MinP == 0 {
		cfg.Observer.Sampling.MinP = 0.05
	}
	if cfg.Observer.Sampling.RepeatPenalty == 0 {
		cfg.Observer.Sampling.RepeatPenalty = 1.1
	}
	if cfg.Observer.Sampling.MaxTokens == 0 {
		cfg.Observer.Sampling.MaxTokens = 512
	}

	if cfg.Task.MaxIterations == 0 {
		cfg.Task.MaxIterations = 3
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Worklog.Dir == "" {
		cfg.Worklog.Dir = ".worklog"
	}

	if cfg.Debug.Host == "" {
		cfg.Debug.Host = "localhost"
	}
	if cfg.Debug.Port == 0 {
		cfg.Debug.Port = 9290
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 15 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Observer.BaseURL == "" {
		return errors.New("observer base_url is required")
	}
	if c.Observer.Timeout <= 0 {
		return errors.New("observer timeout must be positive")
	}
	if c.Task.MaxIterations <= 0 {
		return errors.New("task max_iterations must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}
	if c.Debug.Enabled && (c.Debug.Port <= 0 || c.Debug.Port > 65535) {
		return fmt.Errorf("debug port out of range: %d", c.Debug.Port)
	}
	if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
		return fmt.Errorf("telemetry protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
	}
	return nil
}
