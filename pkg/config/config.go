// Package config loads the generator's process configuration from the
// environment and hands it to generation as one explicit, immutable value.
// Generation never reads ambient state; it is a pure function of the spec
// text and a Config.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/apiforge/mcpgen/pkg/auth"
	"github.com/apiforge/mcpgen/pkg/spec"
)

// Config holds everything the generation pipeline consumes: the spec
// locator, server identity, the auth strategy selection, and the
// per-strategy credential fields.
type Config struct {
	// Spec selection. SpecLocator is a local path or http(s) URL.
	SpecLocator string `env:"SPEC_LOCATOR"`
	BaseURL     string `env:"BASE_URL"`

	// Server identity.
	// ServerName falls back to the spec's title when unset.
	ServerName string `env:"SERVER_NAME"`
	Host       string `env:"MCP_HOST" envDefault:"0.0.0.0"`
	Port       int    `env:"MCP_PORT" envDefault:"3000"`

	// Auth strategy. Empty means "use the scheme the spec declares, if
	// any"; a non-empty value overrides the spec.
	AuthType string `env:"AUTH_TYPE"`

	// basic
	BasicUser string `env:"BASIC_USER"`
	BasicPass string `env:"BASIC_PASS"`
	// bearer
	BearerToken string `env:"BEARER_TOKEN"`
	// api_key
	APIKey         string `env:"API_KEY"`
	APIKeyName     string `env:"API_KEY_NAME"`
	APIKeyLocation string `env:"API_KEY_LOCATION" envDefault:"header"`
	// oauth2 client credentials
	OAuth2TokenURL     string `env:"OAUTH2_TOKEN_URL"`
	OAuth2ClientID     string `env:"OAUTH2_CLIENT_ID"`
	OAuth2ClientSecret string `env:"OAUTH2_CLIENT_SECRET"`
	OAuth2Scope        string `env:"OAUTH2_SCOPE"`

	// Upstream call bound.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`

	// Catalog mode. When set, specs are loaded from Postgres instead of
	// SpecLocator and each active spec mounts at its endpoint path.
	DatabaseURL string `env:"DATABASE_URL"`

	// PollingInterval drives catalog change detection in catalog mode.
	PollingInterval time.Duration `env:"POLLING_INTERVAL" envDefault:"30s"`
	DisablePolling  bool          `env:"DISABLE_POLLING" envDefault:"false"`
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// Missing .env is fine; env vars may be set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the parts of the configuration that must hold before
// generation starts. Credential completeness per strategy is the auth
// resolver's job; this covers the process-level surface.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && c.SpecLocator == "" {
		return fmt.Errorf("either a spec locator or DATABASE_URL is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	switch spec.SchemeType(c.AuthType) {
	case spec.SchemeNone, spec.SchemeBasic, spec.SchemeBearer, spec.SchemeAPIKey, spec.SchemeOAuth2:
	default:
		return fmt.Errorf("unknown auth type %q", c.AuthType)
	}
	return nil
}

// AuthOverride returns the explicit strategy selection, SchemeNone when the
// spec's declared scheme should decide.
func (c *Config) AuthOverride() spec.SchemeType {
	return spec.SchemeType(c.AuthType)
}

// Credentials maps the configured credential fields into the auth
// resolver's shape.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		Username:       c.BasicUser,
		Password:       c.BasicPass,
		Token:          c.BearerToken,
		APIKey:         c.APIKey,
		APIKeyName:     c.APIKeyName,
		APIKeyLocation: c.APIKeyLocation,
		TokenURL:       c.OAuth2TokenURL,
		ClientID:       c.OAuth2ClientID,
		ClientSecret:   c.OAuth2ClientSecret,
		Scope:          c.OAuth2Scope,
	}
}
