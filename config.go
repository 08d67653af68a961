/*
File: config.go
Version: 4.0.0
Description: YAML configuration for the phishing detector: listeners, logging, model
             lifecycle, metrics persistence and API rate limiting.
             Durations are parsed once at load time into unexported fields.
*/

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// --- Configuration Structures ---

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Model     ModelConfig     `yaml:"model"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ModelConfig struct {
	Path           string  `yaml:"path"`            // Persisted model artifact (JSON)
	ExtraCorpus    string  `yaml:"extra_corpus"`    // Optional "url,label" file appended to the built-in corpus
	SkipEvaluation bool    `yaml:"skip_evaluation"` // Skip the hold-out report after training
	Retrain        bool    `yaml:"retrain"`         // Ignore an existing artifact and overwrite it
	C              float64 `yaml:"c"`               // Inverse regularisation strength (default 1.0)
}

type MetricsConfig struct {
	Path string `yaml:"path"`
}

type RateLimitConfig struct {
	Enabled          bool          `yaml:"enabled"`
	ClientQPS        int           `yaml:"client_qps"`
	ClientBurst      int           `yaml:"client_burst"`
	CleanupInterval  string        `yaml:"cleanup_interval"`
	ClientExpiration string        `yaml:"client_expiration"`
	ExemptCIDRs      StringOrSlice `yaml:"exempt_cidrs"`

	parsedCleanupInterval  time.Duration
	parsedClientExpiration time.Duration
	parsedExemptCIDRs      []net.IPNet
}

type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Format  string   `yaml:"format"`
	Outputs []string `yaml:"outputs"`

	File struct {
		Path        string `yaml:"path"`
		Permissions uint32 `yaml:"permissions"`
	} `yaml:"file"`
}

type ListenerConfig struct {
	Address  StringOrSlice `yaml:"address"`
	Port     IntOrSlice    `yaml:"port"`
	Protocol string        `yaml:"protocol"` // "http", "https" (HTTP/1.1+2 and HTTP/3), "h3"
}

type ServerConfig struct {
	Listeners []ListenerConfig `yaml:"listeners"`

	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`

	Timeout         string   `yaml:"timeout"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	MaxBatch        int      `yaml:"max_batch"`
	CORSOrigins     []string `yaml:"cors_origins"`

	parsedTimeout         time.Duration
	parsedShutdownTimeout time.Duration
}

type StringOrSlice []string

func (s *StringOrSlice) UnmarshalYAML(value *yaml.Node) error {
	var single string
	if err := value.Decode(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var slice []string
	if err := value.Decode(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

type IntOrSlice []int

func (s *IntOrSlice) UnmarshalYAML(value *yaml.Node) error {
	var single int
	if err := value.Decode(&single); err == nil {
		*s = []int{single}
		return nil
	}
	var slice []int
	if err := value.Decode(&slice); err != nil {
		return err
	}
	*s = slice
	return nil
}

// --- Defaults ---

const (
	defaultListenAddr      = "0.0.0.0"
	defaultListenPort      = 8000
	defaultServerTimeout   = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultMaxBodyBytes    = 1 << 20
	defaultMaxBatch        = 100
	defaultModelPath       = "model.json"
	defaultMetricsPath     = "metrics.json"
)

var defaultCORSOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "*"}

// --- Configuration Loading ---

// LoadConfig reads the YAML file at path, applies defaults and initializes the logger.
// A missing file is not an error: the built-in defaults are used.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	missing := false

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		missing = true
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := InitLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if missing {
		LogWarn("[CONFIG] %s not found, using built-in defaults", path)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields and parses durations and CIDRs.
func (cfg *Config) applyDefaults() error {
	if len(cfg.Server.Listeners) == 0 {
		cfg.Server.Listeners = []ListenerConfig{{
			Address:  StringOrSlice{defaultListenAddr},
			Port:     IntOrSlice{defaultListenPort},
			Protocol: "http",
		}}
	}
	for i := range cfg.Server.Listeners {
		l := &cfg.Server.Listeners[i]
		if len(l.Address) == 0 { l.Address = StringOrSlice{defaultListenAddr} }
		if len(l.Port) == 0 { l.Port = IntOrSlice{defaultListenPort} }
		if l.Protocol == "" { l.Protocol = "http" }
		l.Protocol = strings.ToLower(l.Protocol)
	}
	if cfg.Server.MaxBodyBytes <= 0 { cfg.Server.MaxBodyBytes = defaultMaxBodyBytes }
	if cfg.Server.MaxBatch <= 0 { cfg.Server.MaxBatch = defaultMaxBatch }
	if cfg.Server.CORSOrigins == nil { cfg.Server.CORSOrigins = defaultCORSOrigins }

	cfg.Server.parsedTimeout = parseDurationOr(cfg.Server.Timeout, defaultServerTimeout, "server.timeout")
	cfg.Server.parsedShutdownTimeout = parseDurationOr(cfg.Server.ShutdownTimeout, defaultShutdownTimeout, "server.shutdown_timeout")

	if cfg.Logging.Level == "" { cfg.Logging.Level = "INFO" }
	if len(cfg.Logging.Outputs) == 0 { cfg.Logging.Outputs = []string{"console"} }

	if cfg.Model.Path == "" { cfg.Model.Path = defaultModelPath }
	if cfg.Model.C < 0 {
		return fmt.Errorf("model.c must be positive, got %v", cfg.Model.C)
	}
	if cfg.Metrics.Path == "" { cfg.Metrics.Path = defaultMetricsPath }

	rl := &cfg.RateLimit
	if rl.ClientQPS <= 0 { rl.ClientQPS = 20 }
	if rl.ClientBurst <= 0 { rl.ClientBurst = rl.ClientQPS * 2 }
	rl.parsedCleanupInterval = parseDurationOr(rl.CleanupInterval, time.Minute, "rate_limit.cleanup_interval")
	rl.parsedClientExpiration = parseDurationOr(rl.ClientExpiration, 5*time.Minute, "rate_limit.client_expiration")

	rl.parsedExemptCIDRs = rl.parsedExemptCIDRs[:0]
	for _, c := range rl.ExemptCIDRs {
		if !strings.Contains(c, "/") {
			if ip := net.ParseIP(c); ip != nil && ip.To4() != nil {
				c += "/32"
			} else {
				c += "/128"
			}
		}
		_, ipnet, err := net.ParseCIDR(c)
		if err != nil {
			return fmt.Errorf("invalid rate_limit.exempt_cidrs entry %q: %w", c, err)
		}
		rl.parsedExemptCIDRs = append(rl.parsedExemptCIDRs, *ipnet)
	}

	return nil
}

// parseDurationOr parses s, falling back to def when s is empty or invalid.
func parseDurationOr(s string, def time.Duration, key string) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		LogWarn("[CONFIG] Invalid %s '%s', defaulting to %v", key, s, def)
		return def
	}
	return d
}
