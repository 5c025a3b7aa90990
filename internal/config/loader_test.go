package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// clearEnvOverrides blanks the OPENEMR_* variables so a developer's shell
// environment cannot leak into the test.
func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENEMR_BASE_URL", "OPENEMR_SITE", "OPENEMR_CLIENT_ID",
		"OPENEMR_CLIENT_SECRET", "OPENEMR_USERNAME", "OPENEMR_PASSWORD",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadUnvalidatedDefaults(t *testing.T) {
	clearEnvOverrides(t)

	// A path that does not exist falls back to built-in defaults
	cfg, err := LoadUnvalidated(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadUnvalidated: %v", err)
	}

	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults = %s:%d, want localhost:8080", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.OpenEMR.Site != "default" {
		t.Errorf("site = %q, want %q", cfg.OpenEMR.Site, "default")
	}
	if cfg.OpenEMR.Role != "users" {
		t.Errorf("role = %q, want %q", cfg.OpenEMR.Role, "users")
	}
	if got := cfg.OpenEMR.Timeout(); got != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", got)
	}
	if got := cfg.OpenEMR.RefreshBuffer(); got != 30*time.Second {
		t.Errorf("refresh buffer = %v, want 30s", got)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadUnvalidatedFromFile(t *testing.T) {
	clearEnvOverrides(t)

	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9090
openemr:
  base_url: https://emr.example.com
  site: clinic
  client_id: abc
  client_secret: shh
  username: admin
  password: pass
  refresh_buffer_seconds: 60
cors:
  allowed_origins:
    - https://app.example.com
  allow_credentials: true
logging:
  level: debug
  format: text
`)

	cfg, err := LoadUnvalidated(path)
	if err != nil {
		t.Fatalf("LoadUnvalidated: %v", err)
	}

	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Errorf("addr = %q, want 0.0.0.0:9090", cfg.Server.Addr())
	}
	if cfg.OpenEMR.BaseURL != "https://emr.example.com" {
		t.Errorf("base url = %q", cfg.OpenEMR.BaseURL)
	}
	if cfg.OpenEMR.Site != "clinic" {
		t.Errorf("site = %q, want clinic", cfg.OpenEMR.Site)
	}
	if got := cfg.OpenEMR.RefreshBuffer(); got != 60*time.Second {
		t.Errorf("refresh buffer = %v, want 60s", got)
	}
	// Fields absent from the file keep their defaults
	if got := cfg.OpenEMR.Timeout(); got != 30*time.Second {
		t.Errorf("timeout = %v, want default 30s", got)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("allowed origins = %v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.CORS.AllowCredentials {
		t.Error("allow_credentials not picked up from file")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %s/%s, want debug/text", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadUnvalidatedExpandsEnvVars(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("TEST_EMR_PASSWORD", "s3cret")

	path := writeConfig(t, `
openemr:
  base_url: https://emr.example.com
  password: ${TEST_EMR_PASSWORD}
`)

	cfg, err := LoadUnvalidated(path)
	if err != nil {
		t.Fatalf("LoadUnvalidated: %v", err)
	}
	if cfg.OpenEMR.Password != "s3cret" {
		t.Errorf("password = %q, want expanded env value", cfg.OpenEMR.Password)
	}
}

func TestLoadUnvalidatedEnvOverridesBeatFile(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("OPENEMR_BASE_URL", "https://override.example.com")
	t.Setenv("OPENEMR_USERNAME", "enviro")

	path := writeConfig(t, `
openemr:
  base_url: https://file.example.com
  site: clinic
  username: filed
`)

	cfg, err := LoadUnvalidated(path)
	if err != nil {
		t.Fatalf("LoadUnvalidated: %v", err)
	}
	if cfg.OpenEMR.BaseURL != "https://override.example.com" {
		t.Errorf("base url = %q, want env override", cfg.OpenEMR.BaseURL)
	}
	if cfg.OpenEMR.Username != "enviro" {
		t.Errorf("username = %q, want env override", cfg.OpenEMR.Username)
	}
	// Values without an override keep the file's setting
	if cfg.OpenEMR.Site != "clinic" {
		t.Errorf("site = %q, want clinic", cfg.OpenEMR.Site)
	}
}

func TestLoadUnvalidatedBadYAML(t *testing.T) {
	clearEnvOverrides(t)

	path := writeConfig(t, "openemr: [not a mapping")
	if _, err := LoadUnvalidated(path); err == nil {
		t.Fatal("LoadUnvalidated() = nil, want parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Host: "localhost", Port: 8080},
			OpenEMR: OpenEMRConfig{
				BaseURL:      "https://emr.example.com",
				Site:         "default",
				ClientID:     "abc",
				ClientSecret: "shh",
				Username:     "admin",
				Password:     "pass",
			},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"missing base url", func(c *Config) { c.OpenEMR.BaseURL = "" }, "openemr.base_url"},
		{"missing site", func(c *Config) { c.OpenEMR.Site = "" }, "openemr.site"},
		{"missing client id", func(c *Config) { c.OpenEMR.ClientID = "" }, "client_id"},
		{"missing client secret", func(c *Config) { c.OpenEMR.ClientSecret = "" }, "client_secret"},
		{"missing username", func(c *Config) { c.OpenEMR.Username = "" }, "username"},
		{"missing password", func(c *Config) { c.OpenEMR.Password = "" }, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *openemr.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}

	t.Run("port out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 0
		if err := cfg.Validate(); err == nil {
			t.Fatal("Validate() = nil, want error for port 0")
		}
	})
}

func TestLoadRequiresUpstream(t *testing.T) {
	clearEnvOverrides(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var cfgErr *openemr.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Load() error = %v, want ConfigError", err)
	}
	if cfgErr.Field != "openemr.base_url" {
		t.Errorf("field = %q, want openemr.base_url", cfgErr.Field)
	}
}
