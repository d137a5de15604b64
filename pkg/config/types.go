// Package config provides configuration loading and validation for haplog.
package config

import (
	"time"

	"github.com/ccollicutt/haplog/pkg/parser"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	LogSources []string        `yaml:"log_sources"`
	Start      string          `yaml:"start,omitempty"`
	Delta      string          `yaml:"delta,omitempty"`
	Commands   []string        `yaml:"commands,omitempty"`
	Output     string          `yaml:"output,omitempty"`
	Webhooks   []WebhookConfig `yaml:"webhooks,omitempty"`

	// window is the resolved start/delta (populated during validation).
	window parser.Window
}

// Window returns the time window resolved from Start and Delta.
func (c *Config) Window() parser.Window {
	return c.window
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnInvalid fires only when invalid lines were found (default).
	WebhookTriggerOnInvalid WebhookTrigger = "on_invalid"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_invalid" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Retries is how many times a failed delivery is repeated.
	Retries int `yaml:"retries,omitempty"`
}
