package core

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column represents a column in a database table.
type Column struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	Position   int
}

// IsJSON reports whether the column holds semi-structured JSON values.
func (c Column) IsJSON() bool {
	switch normalizeType(c.Type) {
	case "json", "jsonb":
		return true
	default:
		return false
	}
}

// TableMetadata holds metadata about a database table.
type TableMetadata struct {
	Schema    string
	Name      string
	Columns   []Column
	SizeBytes int64
	IsView    bool
}

// PrimaryKeys returns the names of the primary-key columns in ordinal order.
func (m *TableMetadata) PrimaryKeys() []string {
	var keys []string
	for _, c := range m.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}
