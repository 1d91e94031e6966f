package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFilterState(t *testing.T) {
	f := DefaultFilterState()

	require.Len(t, f.Where, 1)
	assert.True(t, f.Where[0].IsEmpty())
	require.Len(t, f.OrderBy, 1)
	assert.True(t, f.OrderBy[0].IsEmpty())
	assert.Equal(t, NullsLast, f.OrderBy[0].Nulls)
	assert.Equal(t, Asc, f.OrderBy[0].Direction)
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 0, f.Offset)
	assert.NoError(t, f.Validate())
}

func TestFilterState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *FilterState)
		wantErr string
	}{
		{"valid", func(_ *FilterState) {}, ""},
		{"zero limit", func(f *FilterState) { f.Limit = 0 }, "limit must be positive"},
		{"negative offset", func(f *FilterState) { f.Offset = -1 }, "offset must be non-negative"},
		{"bad direction", func(f *FilterState) {
			f.OrderBy = []OrderBy{{Column: "id", Direction: "sideways"}}
		}, "invalid direction"},
		{"placeholder direction ignored", func(f *FilterState) {
			f.OrderBy = []OrderBy{{Direction: ""}}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := DefaultFilterState()
			tt.mutate(&f)
			err := f.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFilterState_ActiveEntriesDropPlaceholders(t *testing.T) {
	f := FilterState{
		Where: []Clause{
			EmptyClause(),
			{Column: "delivered", Operator: OpEq, Value: "false"},
			{Column: "webhook"},
		},
		OrderBy: []OrderBy{
			{Column: "created_at", Direction: Desc, Nulls: NullsLast},
			EmptyOrderBy(),
		},
		Limit: 10,
	}

	assert.Equal(t, []Clause{{Column: "delivered", Operator: OpEq, Value: "false"}}, f.ActiveWhere())
	assert.Equal(t, []OrderBy{{Column: "created_at", Direction: Desc, Nulls: NullsLast}}, f.ActiveOrderBy())

	req := NewQueryRequest("event_logs", []string{"id"}, f)
	assert.Equal(t, "event_logs", req.Table)
	assert.Len(t, req.Where, 1)
	assert.Len(t, req.OrderBy, 1)
	assert.Equal(t, 10, req.Limit)
}

func TestFilterState_CloneIsDeep(t *testing.T) {
	f := DefaultFilterState()
	c := f.Clone()
	c.OrderBy[0].Column = "id"
	c.Where[0].Column = "id"

	assert.Empty(t, f.OrderBy[0].Column)
	assert.Empty(t, f.Where[0].Column)
}

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in      string
		want    Operator
		wantErr bool
	}{
		{"$eq", OpEq, false},
		{"eq", OpEq, false},
		{" ILIKE ", OpILike, false},
		{"is_null", OpIsNull, false},
		{"", "", false},
		{"between", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperator(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
