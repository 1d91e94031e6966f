package adapter

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/leapstack-labs/rowbrowse/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, Exec, Query, Execute and DeleteRow implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    core.AdapterConfig
	Logger *slog.Logger
	D      *Dialect
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		return b.DB.Close()
	}
	return nil
}

// Dialect returns the adapter's SQL dialect.
func (b *BaseSQLAdapter) Dialect() *Dialect {
	return b.D
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	_, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// Execute runs the count and page queries for req.
func (b *BaseSQLAdapter) Execute(ctx context.Context, req core.QueryRequest) (*core.QueryResult, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	countSQL, countArgs, err := BuildCount(b.D, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}
	var total int
	if err := b.DB.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	selectSQL, selectArgs, err := BuildSelect(b.D, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}
	b.debug("executing page query", slog.String("sql", selectSQL), slog.Int("args", len(selectArgs)))

	rows, err := b.DB.QueryContext(ctx, selectSQL, selectArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, data, err := ScanRows(rows)
	if err != nil {
		return nil, err
	}

	return &core.QueryResult{
		Columns:    cols,
		Rows:       data,
		TotalCount: total,
	}, nil
}

// DeleteRow deletes the row identified by pk and returns the affected row count.
func (b *BaseSQLAdapter) DeleteRow(ctx context.Context, table string, pk core.PrimaryKeyClause) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}
	query, args, err := BuildDelete(b.D, table, pk)
	if err != nil {
		return 0, err
	}
	b.debug("deleting row", slog.String("table", table), slog.String("pk", pk.String()))

	res, err := b.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// ScanRows drains rows into core.Row maps.
// []byte values become strings; JSON-typed columns become json.RawMessage.
func ScanRows(rows *sql.Rows) ([]string, []core.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}
	jsonCols := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			jsonCols[i] = core.Column{Type: ct.DatabaseTypeName()}.IsJSON()
		}
	}

	var out []core.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(core.Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i], jsonCols[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return cols, out, nil
}

func normalizeValue(v any, isJSON bool) any {
	switch val := v.(type) {
	case []byte:
		if isJSON && json.Valid(val) {
			return json.RawMessage(append([]byte(nil), val...))
		}
		return string(val)
	case string:
		if isJSON && json.Valid([]byte(val)) {
			return json.RawMessage(val)
		}
		return val
	case time.Time:
		return val.UTC()
	default:
		return v
	}
}

// ParseQualifiedName splits a table reference into schema and name.
// Uses the dialect's default schema if not specified.
func ParseQualifiedName(table string, d *Dialect) (schema, name string) {
	if parts := strings.Split(table, "."); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

// GetTableMetadataCommon provides a shared implementation of GetTableMetadata.
// Uses information_schema with dialect-appropriate placeholders, including the
// primary-key constraint columns and the table type.
func (b *BaseSQLAdapter) GetTableMetadataCommon(ctx context.Context, table string) (*core.TableMetadata, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	d := b.D
	schema, tableName := ParseQualifiedName(table, d)

	colSQL, colArgs, err := d.Builder().
		Select("column_name", "data_type", "is_nullable", "ordinal_position").
		From("information_schema.columns").
		Where("table_schema = ? AND table_name = ?", schema, tableName).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := b.DB.QueryContext(ctx, colSQL, colArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	pks, err := b.primaryKeyColumns(ctx, schema, tableName)
	if err != nil {
		// Non-fatal: views and some catalogs expose no constraints
		b.debug("primary key lookup failed", slog.String("table", table), slog.Any("error", err))
	}
	for i := range columns {
		if _, ok := pks[columns[i].Name]; ok {
			columns[i].PrimaryKey = true
		}
	}

	meta := &core.TableMetadata{
		Schema:  schema,
		Name:    tableName,
		Columns: columns,
		IsView:  b.isView(ctx, schema, tableName),
	}

	return meta, nil
}

func (b *BaseSQLAdapter) primaryKeyColumns(ctx context.Context, schema, table string) (map[string]struct{}, error) {
	query, args, err := b.D.Builder().
		Select("kcu.column_name").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name").
		Where("tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = ? AND tc.table_name = ?", schema, table).
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	keys := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		keys[name] = struct{}{}
	}
	return keys, rows.Err()
}

func (b *BaseSQLAdapter) isView(ctx context.Context, schema, table string) bool {
	query, args, err := b.D.Builder().
		Select("table_type").
		From("information_schema.tables").
		Where("table_schema = ? AND table_name = ?", schema, table).
		ToSql()
	if err != nil {
		return false
	}
	var tableType string
	if err := b.DB.QueryRowContext(ctx, query, args...).Scan(&tableType); err != nil {
		return false
	}
	return strings.Contains(strings.ToUpper(tableType), "VIEW")
}

// LoadCSVWithInserts creates tableName with TEXT columns from the CSV header
// and inserts every record. Used by adapters without a native bulk loader.
func (b *BaseSQLAdapter) LoadCSVWithInserts(ctx context.Context, tableName, filePath string) error {
	if b.DB == nil {
		return fmt.Errorf("database connection not established")
	}

	file, err := os.Open(filePath) //nolint:gosec // path is user-provided by design
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	headers, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}

	quoted := make([]string, len(headers))
	defs := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = b.D.QuoteIdent(strings.TrimSpace(h))
		defs[i] = quoted[i] + " TEXT"
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := b.D.QuoteIdent(tableName)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read CSV record: %w", err)
		}
		values := make([]any, len(record))
		for i, v := range record {
			values[i] = v
		}
		query, args, err := b.D.Builder().Insert(table).Columns(quoted...).Values(values...).ToSql()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert CSV record: %w", err)
		}
	}

	return tx.Commit()
}

// Describe converts table metadata into the schema the browser consumes.
func Describe(ctx context.Context, a interface {
	GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error)
}, table string) (*core.TableSchema, error) {
	meta, err := a.GetTableMetadata(ctx, table)
	if err != nil {
		return nil, err
	}
	return &core.TableSchema{
		Name:        table,
		Columns:     meta.Columns,
		PrimaryKeys: meta.PrimaryKeys(),
		IsView:      meta.IsView,
	}, nil
}

func (b *BaseSQLAdapter) debug(msg string, attrs ...any) {
	if b.Logger != nil {
		b.Logger.Debug(msg, attrs...)
	}
}
