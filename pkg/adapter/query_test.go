package adapter

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/leapstack-labs/rowbrowse/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pgDialect = &Dialect{
		Name: "postgres", DefaultSchema: "public", Placeholder: squirrel.Dollar,
		Quote: `"`, NullsOrdering: true, ILike: true,
	}
	mysqlDialect = &Dialect{
		Name: "mysql", Placeholder: squirrel.Question, Quote: "`",
	}
)

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name     string
		dialect  *Dialect
		req      core.QueryRequest
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "plain page",
			dialect: pgDialect,
			req:     core.QueryRequest{Table: "event_logs", Limit: 10},
			wantSQL: `SELECT * FROM "event_logs" LIMIT 10 OFFSET 0`,
		},
		{
			name:    "columns order and offset",
			dialect: pgDialect,
			req: core.QueryRequest{
				Table:   "hdb_catalog.event_log",
				Columns: []string{"id", "payload"},
				OrderBy: []core.OrderBy{{Column: "created_at", Direction: core.Desc, Nulls: core.NullsLast}},
				Limit:   20,
				Offset:  40,
			},
			wantSQL: `SELECT "id", "payload" FROM "hdb_catalog"."event_log" ORDER BY "created_at" DESC NULLS LAST LIMIT 20 OFFSET 40`,
		},
		{
			name:    "where clauses",
			dialect: pgDialect,
			req: core.QueryRequest{
				Table: "event_logs",
				Where: []core.Clause{
					{Column: "delivered", Operator: core.OpEq, Value: "false"},
					{Column: "webhook", Operator: core.OpILike, Value: "%hook%"},
				},
				Limit: 5,
			},
			wantSQL:  `SELECT * FROM "event_logs" WHERE "delivered" = $1 AND "webhook" ILIKE $2 LIMIT 5 OFFSET 0`,
			wantArgs: []any{"false", "%hook%"},
		},
		{
			name:    "mysql emulates nulls ordering",
			dialect: mysqlDialect,
			req: core.QueryRequest{
				Table:   "event_logs",
				OrderBy: []core.OrderBy{{Column: "id", Direction: core.Asc, Nulls: core.NullsFirst}},
				Limit:   10,
			},
			wantSQL: "SELECT * FROM `event_logs` ORDER BY `id` IS NULL DESC, `id` ASC LIMIT 10 OFFSET 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := BuildSelect(tt.dialect, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestBuildSelect_Errors(t *testing.T) {
	_, _, err := BuildSelect(pgDialect, core.QueryRequest{Limit: 10})
	assert.Error(t, err)

	_, _, err = BuildSelect(pgDialect, core.QueryRequest{Table: "t", Limit: 0})
	assert.Error(t, err)

	_, _, err = BuildSelect(pgDialect, core.QueryRequest{
		Table: "t", Limit: 1,
		Where: []core.Clause{{Column: "a", Operator: "$between", Value: "1"}},
	})
	assert.ErrorContains(t, err, "unsupported operator")
}

func TestPredicate(t *testing.T) {
	tests := []struct {
		name     string
		dialect  *Dialect
		clause   core.Clause
		wantSQL  string
		wantArgs []any
	}{
		{"in list", pgDialect, core.Clause{Column: "id", Operator: core.OpIn, Value: "1, 2,3"}, `"id" IN ($1,$2,$3)`, []any{"1", "2", "3"}},
		{"not in", pgDialect, core.Clause{Column: "id", Operator: core.OpNIn, Value: "1"}, `"id" NOT IN ($1)`, []any{"1"}},
		{"is null", pgDialect, core.Clause{Column: "webhook", Operator: core.OpIsNull, Value: "true"}, `"webhook" IS NULL`, nil},
		{"is not null", pgDialect, core.Clause{Column: "webhook", Operator: core.OpIsNull, Value: "false"}, `"webhook" IS NOT NULL`, nil},
		{"ilike fallback", mysqlDialect, core.Clause{Column: "webhook", Operator: core.OpILike, Value: "%A%"}, "LOWER(`webhook`) LIKE LOWER(?)", []any{"%A%"}},
		{"gte", pgDialect, core.Clause{Column: "id", Operator: core.OpGte, Value: "3"}, `"id" >= $1`, []any{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := predicate(tt.dialect, tt.clause)
			require.NoError(t, err)
			sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(tt.dialect.Placeholder).
				Select("x").Where(p).ToSql()
			require.NoError(t, err)
			assert.Equal(t, "SELECT x WHERE "+tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestBuildCount_IgnoresPaging(t *testing.T) {
	sql, args, err := BuildCount(pgDialect, core.QueryRequest{
		Table:   "event_logs",
		Where:   []core.Clause{{Column: "delivered", Operator: core.OpEq, Value: "true"}},
		OrderBy: []core.OrderBy{{Column: "id", Direction: core.Asc}},
		Limit:   10,
		Offset:  30,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(*) FROM "event_logs" WHERE "delivered" = $1`, sql)
	assert.Equal(t, []any{"true"}, args)
}

func TestBuildDelete(t *testing.T) {
	sql, args, err := BuildDelete(pgDialect, "event_logs", core.PrimaryKeyClause{"id": 7})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "event_logs" WHERE "id" = $1`, sql)
	assert.Equal(t, []any{7}, args)

	_, _, err = BuildDelete(pgDialect, "event_logs", nil)
	assert.ErrorIs(t, err, core.ErrNoPrimaryKey)
}

func TestDialect_QuoteIdent(t *testing.T) {
	assert.Equal(t, `"a"."b"`, pgDialect.QuoteIdent("a.b"))
	assert.Equal(t, `"we""ird"`, pgDialect.QuoteIdent(`we"ird`))
	assert.Equal(t, "`x`", mysqlDialect.QuoteIdent("x"))
}
