package core

// TargetConfig holds database target configuration.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres, sqlite, mysql

	// File-based databases (DuckDB, SQLite)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	// Common
	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into an adapter connection config.
func (t *TargetConfig) AdapterConfig() AdapterConfig {
	return AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Database: t.Database,
		Schema:   t.Schema,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// ViewConfig defines a browsable dataset view.
type ViewConfig struct {
	Name  string `koanf:"name" yaml:"name"`
	Title string `koanf:"title" yaml:"title"`
	Table string `koanf:"table" yaml:"table"`

	// Columns restricts and orders the displayed columns; empty means all.
	Columns []string `koanf:"columns" yaml:"columns"`

	// ReadOnly hides row actions.
	ReadOnly bool `koanf:"read_only" yaml:"read_only"`

	// PrimaryKeys overrides the keys reported by the database (views have none).
	PrimaryKeys []string `koanf:"primary_keys" yaml:"primary_keys"`

	// DefaultLimit is the initial page size; zero means DefaultLimit.
	DefaultLimit int `koanf:"default_limit" yaml:"default_limit"`

	Relations []RelationConfig `koanf:"relations" yaml:"relations"`
}

// RelationConfig nests another view under a parent view.
// Child rows are filtered by Column = parent row's ParentColumn.
type RelationConfig struct {
	Name         string `koanf:"name" yaml:"name"`
	View         string `koanf:"view" yaml:"view"`
	Column       string `koanf:"column" yaml:"column"`
	ParentColumn string `koanf:"parent_column" yaml:"parent_column"`
}

// DisplayTitle returns Title, falling back to Name.
func (v ViewConfig) DisplayTitle() string {
	if v.Title != "" {
		return v.Title
	}
	return v.Name
}
