// Package browse implements the tabular row browser: per-view filter state
// driven by intents, a last-dispatch-wins query dispatcher, the row renderer,
// pagination arithmetic and the visibility policy for nested relation views.
//
// The package is UI-agnostic. The web console, the terminal UI and the CLI
// all drive a Store and render the snapshots it returns.
package browse
