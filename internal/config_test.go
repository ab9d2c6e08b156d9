package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	pkgconfig "github.com/jacksnnn/fabublox-process-selector/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Token.DevFallbackAllowed() {
		t.Error("default config must not allow the dev fallback")
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if got := cfg.Address(); got != ":9090" {
		t.Errorf("Address() = %q", got)
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestUpstreamConfig_DefaultTimeout(t *testing.T) {
	cfg := UpstreamConfig{BaseURL: "https://api.fabublox.com"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", cfg.Timeout())
	}
}

func TestUpstreamConfig_RequiresBaseURL(t *testing.T) {
	cfg := UpstreamConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing base_url should fail")
	}
}

func TestTokenConfig_EmptyEnvironmentDefaultsProduction(t *testing.T) {
	cfg := TokenConfig{CookieName: "provider_token"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Environment != EnvProduction {
		t.Errorf("environment = %q, want %q", cfg.Environment, EnvProduction)
	}
	if cfg.DevFallbackAllowed() {
		t.Error("production must not allow the dev fallback")
	}
}

func TestTokenConfig_DevelopmentAllowsFallback(t *testing.T) {
	cfg := TokenConfig{Environment: EnvDevelopment, CookieName: "provider_token"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !cfg.DevFallbackAllowed() {
		t.Error("development should allow the dev fallback")
	}
}

func TestTokenConfig_UnknownEnvironment(t *testing.T) {
	cfg := TokenConfig{Environment: "staging", CookieName: "provider_token"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown environment should fail validation")
	}
}

func TestFieldsConfig_NamesMustDiffer(t *testing.T) {
	cfg := FieldsConfig{PrimaryName: "process_id", PreviewName: "process_id"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("identical slot names should fail validation")
	}
}

func TestFieldsConfig_RequiresBothNames(t *testing.T) {
	cfg := FieldsConfig{PrimaryName: "process_id"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing preview_name should fail validation")
	}
}

func TestFullConfig_NestedValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Fields.PreviewName = cfg.Fields.PrimaryName
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch fields error")
	}
}

func TestLoadFromYAMLWithEnvExpansion(t *testing.T) {
	t.Setenv("SELECTOR_DB_PATH", "/tmp/selector-test.db")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  http:
    port: 3000
upstream:
  base_url: https://api.fabublox.com
  timeout_seconds: 10
token:
  environment: development
  cookie_name: provider_token
fields:
  primary_name: process_id
  preview_name: process_svg
sqlite:
  path: ${SELECTOR_DB_PATH}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	var cfg Config
	if err := pkgconfig.Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 3000 {
		t.Errorf("port = %d", cfg.App.HTTP.Port)
	}
	if cfg.Upstream.Timeout() != 10*time.Second {
		t.Errorf("timeout = %v", cfg.Upstream.Timeout())
	}
	if cfg.SQLite.Path != "/tmp/selector-test.db" {
		t.Errorf("sqlite path = %q, want env-expanded value", cfg.SQLite.Path)
	}
	if !cfg.Token.DevFallbackAllowed() {
		t.Error("development environment should allow the dev fallback")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("app:\n  http:\n    port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg Config
	if err := pkgconfig.Load(path, &cfg); err == nil {
		t.Fatal("invalid config should fail Load")
	}
}
