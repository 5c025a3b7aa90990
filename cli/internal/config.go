package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Context names one proxy deployment: the config file carrying its OpenEMR
// connection and credentials, plus how emrctl renders markdown for it.
type Context struct {
	ConfigFile string `yaml:"config_file"`
	Theme      string `yaml:"theme,omitempty"`
}

// Config is the ~/.emrctl file: named contexts plus the active one,
// kubectl style.
type Config struct {
	CurrentContext string              `yaml:"current-context"`
	Contexts       map[string]*Context `yaml:"contexts"`
}

// Current returns the active context.
func (c *Config) Current() (*Context, error) {
	if c.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set")
	}
	ctx, ok := c.Contexts[c.CurrentContext]
	if !ok {
		return nil, fmt.Errorf("current context %q not found", c.CurrentContext)
	}
	return ctx, nil
}

// Use switches the active context.
func (c *Config) Use(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	c.CurrentContext = name
	return nil
}

// Put adds or replaces a context. The first context added becomes current.
func (c *Config) Put(name string, ctx *Context) {
	if c.Contexts == nil {
		c.Contexts = make(map[string]*Context)
	}
	c.Contexts[name] = ctx
	if len(c.Contexts) == 1 {
		c.CurrentContext = name
	}
}

// Remove deletes a context. The active context cannot be removed.
func (c *Config) Remove(name string) error {
	if name == c.CurrentContext {
		return fmt.Errorf("cannot delete current context %q", name)
	}
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q does not exist", name)
	}
	delete(c.Contexts, name)
	return nil
}

// cliConfigPath returns ~/.emrctl.
func cliConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".emrctl"), nil
}

// defaultContexts points a fresh install at the repo-local development
// config. Nothing is written to disk until a config command saves.
func defaultContexts() *Config {
	cfg := &Config{}
	cfg.Put("dev", &Context{ConfigFile: "configs/development.yaml", Theme: "auto"})
	return cfg
}

// loadContexts reads ~/.emrctl, falling back to defaults when the file does
// not exist yet.
func loadContexts() (*Config, error) {
	path, err := cliConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaultContexts(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	// A hand-edited file may name no current context; pick one so every
	// command does not fail on an otherwise usable file
	if cfg.CurrentContext == "" {
		for name := range cfg.Contexts {
			cfg.CurrentContext = name
			break
		}
	}

	return &cfg, nil
}

// saveContexts writes ~/.emrctl. Contexts reference config files that may
// hold credentials, so the contexts file is kept private too.
func saveContexts(cfg *Config) error {
	path, err := cliConfigPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal contexts: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
