package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Deployment environments.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Upstream UpstreamConfig    `yaml:"upstream"`
	Token    TokenConfig       `yaml:"token"`
	Fields   FieldsConfig      `yaml:"fields"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Upstream.Validate(); err != nil {
		return err
	}
	if err := c.Token.Validate(); err != nil {
		return err
	}
	if err := c.Fields.Validate(); err != nil {
		return err
	}
	return c.SQLite.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// UpstreamConfig holds the outbound contract with the external process
// metadata service.
type UpstreamConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the upstream configuration.
func (c *UpstreamConfig) Validate() error {
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// Timeout returns the per-request upstream timeout.
func (c *UpstreamConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TokenConfig configures the credential resolution chain.
//
// The endpoint URLs are optional: an empty URL makes its strategy a no-op
// that yields nothing and the chain moves on. Environment gates the
// development-only placeholder credential; production must never use it.
type TokenConfig struct {
	Environment         string `yaml:"environment"`
	IntegrationTokenURL string `yaml:"integration_token_url"`
	IdentityURL         string `yaml:"identity_url"`
	FallbackTokenURL    string `yaml:"fallback_token_url"`
	CookieName          string `yaml:"cookie_name"`
}

// Validate validates the token configuration.
func (c *TokenConfig) Validate() error {
	if c.Environment == "" {
		c.Environment = EnvProduction
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Environment, validation.Required, validation.In(EnvProduction, EnvDevelopment)),
		validation.Field(&c.IntegrationTokenURL, is.URL),
		validation.Field(&c.IdentityURL, is.URL),
		validation.Field(&c.FallbackTokenURL, is.URL),
		validation.Field(&c.CookieName, validation.Required),
	)
}

// DevFallbackAllowed reports whether the placeholder credential may be
// used when every strategy is exhausted.
func (c *TokenConfig) DevFallbackAllowed() bool {
	return c.Environment == EnvDevelopment
}

// FieldsConfig names the two per-topic custom-field slots. The names are
// deployment configuration, chosen by the forum administrator.
type FieldsConfig struct {
	PrimaryName string `yaml:"primary_name"`
	PreviewName string `yaml:"preview_name"`
}

// Validate validates the fields configuration.
func (c *FieldsConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.PrimaryName, validation.Required),
		validation.Field(&c.PreviewName, validation.Required),
	); err != nil {
		return err
	}
	if c.PrimaryName == c.PreviewName {
		return fmt.Errorf("fields: primary_name and preview_name must differ (both %q)", c.PrimaryName)
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:        "https://api.fabublox.com",
			TimeoutSeconds: 30,
		},
		Token: TokenConfig{
			Environment: EnvProduction,
			CookieName:  "provider_token",
		},
		Fields: FieldsConfig{
			PrimaryName: "process_id",
			PreviewName: "process_svg",
		},
		SQLite: SQLiteConfig{
			Path: "./selector.db",
		},
	}
}
