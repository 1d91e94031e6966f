package config

import (
	"fmt"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// DefaultViews returns the event trigger views used when no views are configured.
func DefaultViews() []core.ViewConfig {
	return []core.ViewConfig{
		{
			Name:        "event_logs",
			Title:       "Processed Events",
			Table:       "event_logs",
			Columns:     []string{"id", "trigger_name", "delivered", "tries", "payload", "webhook", "created_at"},
			PrimaryKeys: []string{"id"},
			Relations: []core.RelationConfig{
				{Name: "invocations", View: "event_invocations", Column: "event_id", ParentColumn: "id"},
			},
		},
		{
			Name:        "event_invocations",
			Title:       "Invocation Logs",
			Table:       "event_invocation_logs",
			PrimaryKeys: []string{"id"},
		},
		{
			Name:     "pending_events",
			Title:    "Pending Events",
			Table:    "pending_events",
			ReadOnly: true,
		},
	}
}

// ValidateViews checks names are unique and relations point at known views.
func ValidateViews(views []core.ViewConfig) error {
	names := make(map[string]struct{}, len(views))
	for _, v := range views {
		if v.Name == "" {
			return fmt.Errorf("view name is required")
		}
		if v.Table == "" {
			return fmt.Errorf("view %q: table is required", v.Name)
		}
		if v.DefaultLimit < 0 {
			return fmt.Errorf("view %q: default_limit must be positive", v.Name)
		}
		if _, dup := names[v.Name]; dup {
			return fmt.Errorf("duplicate view %q", v.Name)
		}
		names[v.Name] = struct{}{}
	}

	for _, v := range views {
		for _, r := range v.Relations {
			if r.Name == "" || r.Column == "" || r.ParentColumn == "" {
				return fmt.Errorf("view %q: relation needs name, column and parent_column", v.Name)
			}
			if _, ok := names[r.View]; !ok {
				return fmt.Errorf("view %q: relation %q references unknown view %q", v.Name, r.Name, r.View)
			}
		}
	}
	return nil
}
