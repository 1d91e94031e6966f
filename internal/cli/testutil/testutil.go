// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/leapstack-labs/rowbrowse/internal/demo"
	"github.com/leapstack-labs/rowbrowse/pkg/adapters/sqlite"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/require"
)

// ConfigFile is the config file written by SetupTestProject.
const ConfigFile = "rowbrowse.yaml"

// SetupTestProject creates a temporary project with a SQLite database seeded
// with the demo event tables and a rowbrowse.yaml pointing at it.
// It returns the project directory.
func SetupTestProject(t *testing.T, events int) string {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "hooks.db")

	ctx := context.Background()
	a := sqlite.New(nil)
	require.NoError(t, a.Connect(ctx, core.AdapterConfig{Type: "sqlite", Path: dbPath}))
	_, err := demo.Seed(ctx, a, demo.Options{Events: events, Drop: true})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	cfg := `target:
  type: sqlite
  database: hooks.db
state_path: .rowbrowse/state.db
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, ConfigFile), []byte(cfg), 0o600))
	return tmpDir
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
