// Package config holds the defaults and validation shared by every rowbrowse
// front end: target defaults, config file discovery and view definitions.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/rowbrowse/pkg/adapter"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// Default configuration values.
const (
	DefaultStateFile = ".rowbrowse/state.db"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
	DefaultPort      = 8765
	DefaultTarget    = "duckdb"
)

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTarget
	}
	t.Type = strings.ToLower(t.Type)

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
	case "mysql":
		if t.Port == 0 {
			t.Port = 3306
		}
		// MySQL has no schemas below the database.
		if t.Schema == "" {
			t.Schema = t.Database
		}
	}
}

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; unknown types fall back to "main".
// Dialects without a fixed default schema return "".
func DefaultSchemaForType(dbType string) string {
	if d, ok := adapter.GetDialect(dbType); ok {
		return d.DefaultSchema
	}
	return "main"
}

// ValidateTarget checks that a target names a registered adapter.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil {
		return fmt.Errorf("target is required")
	}
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}

	// Use adapter registry as single source of truth
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}
