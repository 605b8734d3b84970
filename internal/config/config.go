// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from leasewise.yaml, an optional .env
// file, and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL is the analysis service used when nothing is configured.
const DefaultAPIBaseURL = "http://localhost:8000"

// Config holds all configuration for the client.
type Config struct {
	// Analysis service
	APIBaseURL    string
	HealthTimeout time.Duration
	UploadTimeout time.Duration
	LookupTimeout time.Duration

	// Connectivity monitor
	PollInterval time.Duration

	// VIN cache. Empty RedisURL selects the in-process cache.
	RedisURL string
	CacheTTL time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	API struct {
		BaseURL  string `yaml:"base_url"`
		Timeouts struct {
			Health string `yaml:"health"`
			Upload string `yaml:"upload"`
			Lookup string `yaml:"lookup"`
		} `yaml:"timeouts"`
	} `yaml:"api"`
	Monitor struct {
		PollInterval string `yaml:"poll_interval"`
	} `yaml:"monitor"`
	Cache struct {
		RedisURL string `yaml:"redis_url"`
		TTL      string `yaml:"ttl"`
	} `yaml:"cache"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads .env into the environment, then the YAML file named by
// CONFIG_PATH (default leasewise.yaml). Both files are optional. Values set
// in YAML win; unset keys fall back to environment variables and then to
// defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file, relying on environment", "error", err)
	}
	return LoadFile(envOrDefault("CONFIG_PATH", "leasewise.yaml"))
}

// LoadFile builds the configuration from the YAML file at path and the
// environment. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	var raw rawConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Debug("no config file, using environment", "path", path)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	default:
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	baseURL := firstNonEmpty(raw.API.BaseURL, envOrDefault("API_BASE_URL", DefaultAPIBaseURL))
	cfg := &Config{
		APIBaseURL: strings.TrimRight(baseURL, "/"),
		RedisURL:   firstNonEmpty(raw.Cache.RedisURL, os.Getenv("REDIS_URL")),
		LogLevel:   strings.ToLower(firstNonEmpty(raw.Log.Level, envOrDefault("LOG_LEVEL", "info"))),
		LogFormat:  strings.ToLower(firstNonEmpty(raw.Log.Format, envOrDefault("LOG_FORMAT", "text"))),
	}

	durations := []struct {
		dst      *time.Duration
		yamlVal  string
		envKey   string
		fallback time.Duration
	}{
		{&cfg.HealthTimeout, raw.API.Timeouts.Health, "HEALTH_TIMEOUT", 5 * time.Second},
		{&cfg.UploadTimeout, raw.API.Timeouts.Upload, "UPLOAD_TIMEOUT", 300 * time.Second},
		{&cfg.LookupTimeout, raw.API.Timeouts.Lookup, "LOOKUP_TIMEOUT", 10 * time.Second},
		{&cfg.PollInterval, raw.Monitor.PollInterval, "POLL_INTERVAL", 30 * time.Second},
		{&cfg.CacheTTL, raw.Cache.TTL, "CACHE_TTL", 24 * time.Hour},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.yamlVal) == "" {
			*d.dst = envOrDefaultDuration(d.envKey, d.fallback)
			continue
		}
		v, err := parseDuration(d.yamlVal)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", strings.ToLower(d.envKey), err)
		}
		*d.dst = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid API base URL %q: %w", c.APIBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base URL %q: want http(s)://host[:port]", c.APIBaseURL)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q: want text or json", c.LogFormat)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// parseDuration accepts Go durations ("90s") or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if n, err := strconv.Atoi(s); err == nil {
		d = time.Duration(n) * time.Second
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := parseDuration(v); err == nil {
			return d
		}
		slog.Warn("ignoring invalid duration", "key", key, "value", v)
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
