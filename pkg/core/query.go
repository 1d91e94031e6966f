package core

import "context"

// QueryRequest is what the browser asks a query-execution service for.
// Where and OrderBy never contain placeholder entries.
type QueryRequest struct {
	Table   string
	Columns []string
	Where   []Clause
	OrderBy []OrderBy
	Limit   int
	Offset  int
}

// NewQueryRequest builds a request for table from a filter state,
// dropping placeholder clauses and order-by entries.
func NewQueryRequest(table string, columns []string, f FilterState) QueryRequest {
	return QueryRequest{
		Table:   table,
		Columns: columns,
		Where:   f.ActiveWhere(),
		OrderBy: f.ActiveOrderBy(),
		Limit:   f.Limit,
		Offset:  f.Offset,
	}
}

// QueryResult is one page of rows plus the total row count matching the filter.
type QueryResult struct {
	Columns    []string
	Rows       []Row
	TotalCount int
}

// TableSchema describes the ordered columns and primary keys of a table or view.
type TableSchema struct {
	Name        string
	Columns     []Column
	PrimaryKeys []string
	IsView      bool
}

// ColumnNames returns the column names in order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the named column.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasPrimaryKeys reports whether rows can be identified by primary key.
func (s TableSchema) HasPrimaryKeys() bool {
	return len(s.PrimaryKeys) > 0
}

// QueryExecutor runs filtered, sorted and paged queries.
type QueryExecutor interface {
	Execute(ctx context.Context, req QueryRequest) (*QueryResult, error)
}

// SchemaDescriber yields column and primary-key metadata for a table or view.
type SchemaDescriber interface {
	Describe(ctx context.Context, table string) (*TableSchema, error)
}

// RowDeleter deletes the row identified by a primary-key clause.
type RowDeleter interface {
	DeleteRow(ctx context.Context, table string, pk PrimaryKeyClause) (int64, error)
}

// Backend bundles the collaborators a browser needs.
type Backend interface {
	QueryExecutor
	SchemaDescriber
	RowDeleter
}
