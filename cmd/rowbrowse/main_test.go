// Package main provides end-to-end tests for the rowbrowse CLI.
package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/rowbrowse/internal/cli"
	"github.com/leapstack-labs/rowbrowse/internal/cli/config"
	"github.com/leapstack-labs/rowbrowse/internal/cli/testutil"
	"github.com/leapstack-labs/rowbrowse/internal/demo"
)

// run executes the root command with args and returns its combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version command error = %v", err)
	}
	if !strings.Contains(out, "rowbrowse v") {
		t.Errorf("version output should contain 'rowbrowse v', got: %s", out)
	}
}

func TestHelpCommand(t *testing.T) {
	out, err := run(t, "--help")
	if err != nil {
		t.Fatalf("help command error = %v", err)
	}
	for _, expected := range []string{"views", "rows", "browse", "serve", "shell", "seed", "delete", "describe"} {
		if !strings.Contains(out, expected) {
			t.Errorf("help output should contain %q, got: %s", expected, out)
		}
	}
}

func TestViewsCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t, 12)

	out, err := run(t, "views", "--config", filepath.Join(dir, testutil.ConfigFile), "-o", "json")
	if err != nil {
		t.Fatalf("views command error = %v\n%s", err, out)
	}
	for _, expected := range []string{"event_logs", "pending_events", "Processed Events"} {
		if !strings.Contains(out, expected) {
			t.Errorf("views output should contain %q, got: %s", expected, out)
		}
	}
}

func TestRowsCommand_JSON(t *testing.T) {
	dir := testutil.SetupTestProject(t, 12)

	out, err := run(t, "rows", "event_logs",
		"--config", filepath.Join(dir, testutil.ConfigFile),
		"--format", "json",
		"--limit", "5",
		"--where", "trigger_name:eq:user_signup",
	)
	if err != nil {
		t.Fatalf("rows command error = %v\n%s", err, out)
	}

	var page struct {
		View       string           `json:"view"`
		Rows       []map[string]any `json:"rows"`
		TotalCount int              `json:"total_count"`
		Limit      int              `json:"limit"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("rows output is not JSON: %v\n%s", err, out)
	}
	if page.View != "event_logs" {
		t.Errorf("view = %q, want event_logs", page.View)
	}
	// events 0, 4 and 8 of 12 are user signups
	if page.TotalCount != 3 || len(page.Rows) != 3 {
		t.Errorf("got %d rows of %d, want 3 of 3", len(page.Rows), page.TotalCount)
	}
	if page.Limit != 5 {
		t.Errorf("limit = %d, want 5", page.Limit)
	}
}

func TestRowsCommand_UnknownView(t *testing.T) {
	dir := testutil.SetupTestProject(t, 3)

	_, err := run(t, "rows", "nope", "--config", filepath.Join(dir, testutil.ConfigFile))
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Errorf("expected unknown view error, got %v", err)
	}
}

func TestDescribeCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t, 3)

	out, err := run(t, "describe", "event_logs", "--config", filepath.Join(dir, testutil.ConfigFile))
	if err != nil {
		t.Fatalf("describe command error = %v\n%s", err, out)
	}
	for _, expected := range []string{"event_logs", "trigger_name", "PK"} {
		if !strings.Contains(out, expected) {
			t.Errorf("describe output should contain %q, got: %s", expected, out)
		}
	}
}

func TestDeleteCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t, 12)
	cfg := filepath.Join(dir, testutil.ConfigFile)

	out, err := run(t, "delete", "event_logs", "--config", cfg, "--pk", "id="+demo.EventID(1))
	if err != nil {
		t.Fatalf("delete command error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Deleted") {
		t.Errorf("delete output should confirm the delete, got: %s", out)
	}

	out, err = run(t, "rows", "event_logs", "--config", cfg, "--format", "json")
	if err != nil {
		t.Fatalf("rows command error = %v\n%s", err, out)
	}
	if !strings.Contains(out, `"total_count": 11`) {
		t.Errorf("expected 11 rows after delete, got: %s", out)
	}

	_, err = run(t, "delete", "pending_events", "--config", cfg, "--pk", "id="+demo.EventID(0))
	if err == nil {
		t.Error("deleting from a read-only view should fail")
	}
}
