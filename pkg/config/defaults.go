package config

import (
	"os"
	"strings"
	"time"
)

// Default values for configuration.
const (
	DefaultWebhookTimeout = 10 * time.Second
	MaxWebhookRetries     = 5
	DefaultOutput         = "text"
)

// Environment variable names.
const (
	EnvLogSources = "HAPLOG_LOG_SOURCES"
	EnvStart      = "HAPLOG_START"
	EnvDelta      = "HAPLOG_DELTA"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogSources: []string{},
		Output:     DefaultOutput,
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if sources := os.Getenv(EnvLogSources); sources != "" {
		c.LogSources = c.LogSources[:0]
		for _, s := range strings.Split(sources, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.LogSources = append(c.LogSources, s)
			}
		}
	}
	if start := os.Getenv(EnvStart); start != "" {
		c.Start = start
	}
	if delta := os.Getenv(EnvDelta); delta != "" {
		c.Delta = delta
	}
}
