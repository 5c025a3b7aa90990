package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// expandEnvVars expands environment variables in the format ${VAR} or $VAR
// Uses Go's built-in os.ExpandEnv which is the idiomatic way to handle this
func expandEnvVars(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}

// DefaultConfigPaths defines the default locations to search for configuration files
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"./configs/config.yaml",
	"./configs/config.yml",
	"./configs/development.yaml",
	"/etc/emrproxy/config.yaml",
	"/etc/emrproxy/config.yml",
}

// Load loads the configuration from the specified file or default locations
func Load(configPath string) (*Config, error) {
	config, err := LoadUnvalidated(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadUnvalidated parses the configuration without checking required fields.
// emrctl uses it to fill a missing password interactively before validating.
func LoadUnvalidated(configPath string) (*Config, error) {
	// Set default values
	config := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		OpenEMR: OpenEMRConfig{
			Site:                 "default",
			Role:                 "users",
			TimeoutSeconds:       30,
			RefreshBufferSeconds: 30,
		},
		Templates: TemplatesConfig{
			Path: "web/templates",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	// If no config path is provided, search in default locations
	if configPath == "" {
		configPath = findConfigFile()
	}

	// Load configuration from file if it exists
	if configPath != "" && fileExists(configPath) {
		fmt.Fprintf(os.Stderr, "[CONFIG] Loading config from: %s\n", configPath)
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the config
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		fmt.Fprintf(os.Stderr, "[CONFIG] No config file found, using defaults\n")
	}

	// Environment variables take precedence over the file
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides lets deployment environments inject the upstream
// connection without touching the config file. Secret values are not echoed.
func applyEnvOverrides(config *Config) {
	if baseURL := os.Getenv("OPENEMR_BASE_URL"); baseURL != "" {
		config.OpenEMR.BaseURL = baseURL
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR base URL from environment: %s\n", baseURL)
	}
	if site := os.Getenv("OPENEMR_SITE"); site != "" {
		config.OpenEMR.Site = site
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR site from environment: %s\n", site)
	}
	if clientID := os.Getenv("OPENEMR_CLIENT_ID"); clientID != "" {
		config.OpenEMR.ClientID = clientID
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR client id from environment\n")
	}
	if clientSecret := os.Getenv("OPENEMR_CLIENT_SECRET"); clientSecret != "" {
		config.OpenEMR.ClientSecret = clientSecret
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR client secret from environment\n")
	}
	if username := os.Getenv("OPENEMR_USERNAME"); username != "" {
		config.OpenEMR.Username = username
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR username from environment\n")
	}
	if password := os.Getenv("OPENEMR_PASSWORD"); password != "" {
		config.OpenEMR.Password = password
		fmt.Fprintf(os.Stderr, "[CONFIG] Using OpenEMR password from environment\n")
	}
}

// findConfigFile searches for a configuration file in default locations
func findConfigFile() string {
	for _, path := range DefaultConfigPaths {
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// Validate performs basic validation on the configuration. Missing upstream
// settings are fatal at startup, rather than on the first request.
func (c *Config) Validate() error {
	if c.OpenEMR.BaseURL == "" {
		return &openemr.ConfigError{Field: "openemr.base_url"}
	}
	if c.OpenEMR.Site == "" {
		return &openemr.ConfigError{Field: "openemr.site"}
	}

	creds := c.OpenEMR.Credentials()
	if err := creds.Validate(); err != nil {
		return err
	}

	// Validate HTTP port is reasonable
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}
