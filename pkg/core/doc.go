// Package core defines the shared language of the rowbrowse system.
//
// This package contains:
//   - Filter entities (Clause, OrderBy, FilterState) and their empty sentinels
//   - Row values and primary-key clauses
//   - Schema metadata (Column, TableSchema)
//   - Collaborator interfaces (QueryExecutor, SchemaDescriber, RowDeleter)
//   - Configuration types (AdapterConfig, TargetConfig, ViewConfig)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
