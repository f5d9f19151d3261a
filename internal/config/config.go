// Package config loads the engine's runtime configuration.
package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/anthropics/invisible-gallery/internal/domain"
)

// Config holds the engine's runtime configuration. SecretKey is the single
// static secret all content is encrypted under; rotating it orphans every
// existing blob.
type Config struct {
	DBPath           string `json:"db_path"`
	ListenAddr       string `json:"listen_addr"`
	SecretKey        string `json:"secret_key"`
	SecretKeyBase64  bool   `json:"secret_key_base64"`
	SweepIntervalSec int    `json:"sweep_interval_sec"`
}

// Load reads a JSON config file, applies defaults, and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Secret returns the raw secret bytes, decoding base64 when configured.
func (c *Config) Secret() ([]byte, error) {
	if c.SecretKeyBase64 {
		raw, err := base64.StdEncoding.DecodeString(c.SecretKey)
		if err != nil {
			return nil, domain.WrapEngineError(domain.ErrConfigInvalid.Code, "decode secret_key", err)
		}
		return raw, nil
	}
	return []byte(c.SecretKey), nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":9810"
	}
}

func (c *Config) validate() error {
	var problems []string

	if c.DBPath == "" {
		problems = append(problems, "db_path is required")
	}
	if c.SecretKey == "" {
		problems = append(problems, "secret_key is required")
	}
	if c.SweepIntervalSec < 0 {
		problems = append(problems, "sweep_interval_sec must not be negative")
	}

	if len(problems) > 0 {
		return &domain.EngineError{
			Code:    domain.ErrConfigInvalid.Code,
			Message: fmt.Sprintf("%s: %v", domain.ErrConfigInvalid.Message, problems),
		}
	}
	return nil
}
