package config

import (
	"fmt"
	"time"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// Config represents the proxy configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	OpenEMR   OpenEMRConfig   `yaml:"openemr"`
	CORS      CORSConfig      `yaml:"cors"`
	Session   SessionConfig   `yaml:"session"`
	Templates TemplatesConfig `yaml:"templates"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host        string `yaml:"host" default:"localhost"`
	Port        int    `yaml:"port" default:"8080"`
	MetricsPort int    `yaml:"metrics_port" default:"0"` // 0 means Port+10
}

// OpenEMRConfig holds the upstream EMR connection and password grant settings
type OpenEMRConfig struct {
	BaseURL string `yaml:"base_url"`                  // e.g. https://emr.example.com
	Site    string `yaml:"site" default:"default"`    // site id in the oauth2/ and apis/ paths
	Role    string `yaml:"user_role" default:"users"` // users (practitioner API) or patient (portal)

	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Scope        string `yaml:"scope,omitempty"` // optional; omitted from the grant when empty

	TimeoutSeconds       int `yaml:"timeout_seconds" default:"30"`        // per-request HTTP timeout
	RefreshBufferSeconds int `yaml:"refresh_buffer_seconds" default:"30"` // refetch this long before expiry
}

// CORSConfig holds the browser origin allow-list for the JSON API
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"` // exact origins, or "*"
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// SessionConfig holds cookie session configuration
type SessionConfig struct {
	Secret string `yaml:"secret"` // 32-byte base64-encoded or hex string
}

// TemplatesConfig holds template loading configuration
type TemplatesConfig struct {
	Path string `yaml:"path" default:"web/templates"` // Path to templates directory
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`  // Log level: debug, info, warn, error
	Format string `yaml:"format" default:"json"` // Log format: json, text
}

// Credentials maps the grant settings onto the token manager's credential set
func (o *OpenEMRConfig) Credentials() openemr.Credentials {
	return openemr.Credentials{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		Username:     o.Username,
		Password:     o.Password,
		Role:         o.Role,
		Scope:        o.Scope,
	}
}

// Timeout returns the per-request HTTP timeout
func (o *OpenEMRConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// RefreshBuffer returns how long before expiry a token counts as expired
func (o *OpenEMRConfig) RefreshBuffer() time.Duration {
	return time.Duration(o.RefreshBufferSeconds) * time.Second
}

// Addr returns the HTTP listen address
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
