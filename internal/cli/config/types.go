// Package config provides configuration management for the rowbrowse CLI.
//
// This package extends the shared configuration from internal/config with
// CLI-specific fields. The shared target type is defined in pkg/core and
// re-exported here via a type alias for convenience.
package config

import (
	"fmt"

	sharedcfg "github.com/leapstack-labs/rowbrowse/internal/config"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// ViewConfig is an alias for the shared view definition.
type ViewConfig = core.ViewConfig

// UIConfig holds configuration for the web console.
type UIConfig struct {
	Port          int    `koanf:"port"`
	AutoOpen      bool   `koanf:"auto_open"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
	DefaultLimit  int    `koanf:"default_limit"`
	PersistState  bool   `koanf:"persist_state"`
	// SecureCookies marks the session cookie Secure. Only set it when the
	// console is reached over https, e.g. behind a TLS proxy.
	SecureCookies bool `koanf:"secure_cookies"`
}

// Config holds all CLI configuration options.
type Config struct {
	StatePath    string               `koanf:"state_path"`
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	Views        []ViewConfig         `koanf:"views"`
	UI           UIConfig             `koanf:"ui"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
	Views  []ViewConfig  `koanf:"views"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultOutput    = sharedcfg.DefaultOutput
	DefaultPort      = sharedcfg.DefaultPort
	DefaultEnv       = "dev"
	DefaultLogLevel  = "warn"
)

// View returns the named view definition.
func (c *Config) View(name string) (ViewConfig, bool) {
	for _, v := range c.Views {
		if v.Name == name {
			return v, true
		}
	}
	return ViewConfig{}, false
}

// ViewNames lists configured view names in declaration order.
func (c *Config) ViewNames() []string {
	names := make([]string, len(c.Views))
	for i, v := range c.Views {
		names[i] = v.Name
	}
	return names
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := sharedcfg.ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("invalid target configuration: %w", err)
	}
	if err := sharedcfg.ValidateViews(c.Views); err != nil {
		return fmt.Errorf("invalid views: %w", err)
	}
	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port out of range: %d", c.UI.Port)
	}
	if c.UI.DefaultLimit <= 0 {
		return fmt.Errorf("ui.default_limit must be positive, got %d", c.UI.DefaultLimit)
	}
	return nil
}

// IsFileTarget reports whether the target database is a local file.
func (c *Config) IsFileTarget() bool {
	if c.Target == nil {
		return false
	}
	switch c.Target.Type {
	case "duckdb", "sqlite":
		return true
	}
	return false
}
