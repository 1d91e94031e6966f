package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_LookupDistinguishesNullFromUndefined(t *testing.T) {
	row := Row{"id": 1, "webhook": nil}

	v, ok := row.Lookup("webhook")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = row.Lookup("payload")
	assert.False(t, ok)
}

func TestNewPrimaryKeyClause(t *testing.T) {
	row := Row{"id": "evt-1", "tenant": 7, "payload": map[string]any{"a": 1}}

	pk, err := NewPrimaryKeyClause(row, []string{"id"})
	require.NoError(t, err)
	assert.Equal(t, PrimaryKeyClause{"id": "evt-1"}, pk)

	pk, err = NewPrimaryKeyClause(row, []string{"tenant", "id"})
	require.NoError(t, err)
	assert.Equal(t, "id=evt-1, tenant=7", pk.String())

	_, err = NewPrimaryKeyClause(row, nil)
	assert.True(t, errors.Is(err, ErrNoPrimaryKey))

	_, err = NewPrimaryKeyClause(row, []string{"missing"})
	assert.True(t, errors.Is(err, ErrNoPrimaryKey))
}

func TestParsePrimaryKeyClause(t *testing.T) {
	pk, err := ParsePrimaryKeyClause([]string{"id=42", " tenant = a "})
	require.NoError(t, err)
	assert.Equal(t, PrimaryKeyClause{"id": "42", "tenant": "a"}, pk)

	_, err = ParsePrimaryKeyClause([]string{"=3"})
	assert.Error(t, err)

	_, err = ParsePrimaryKeyClause(nil)
	assert.ErrorIs(t, err, ErrNoPrimaryKey)
}

func TestColumn_IsJSON(t *testing.T) {
	assert.True(t, Column{Type: "JSONB"}.IsJSON())
	assert.True(t, Column{Type: "json"}.IsJSON())
	assert.False(t, Column{Type: "text"}.IsJSON())
}
