package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySaveValidation(t *testing.T) {
	tests := []struct {
		name    string
		qName   string
		body    string
		wantErr error
	}{
		{name: "empty name", qName: "", body: "select 1", wantErr: ErrEmptyQueryName},
		{name: "blank name", qName: "   ", body: "select 1", wantErr: ErrEmptyQueryName},
		{name: "empty body", qName: "q", body: "  ", wantErr: ErrEmptyQueryBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			_, err := r.Save("", tt.qName, tt.body, TypeSQL)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, r.All())
		})
	}
}

func TestRegistrySaveAppendsAndReplaces(t *testing.T) {
	r := NewRegistry()

	first, err := r.Save("", "totals", "SELECT count(*) FROM df1", TypeSQL)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	// Unknown ID still appends with a fresh ID.
	second, err := r.Save("nope", "other", "SELECT 1", TypeSQL)
	require.NoError(t, err)
	assert.NotEqual(t, "nope", second.ID)
	assert.Len(t, r.All(), 2)

	// Known ID replaces in place, preserving order.
	updated, err := r.Save(first.ID, "totals", "SELECT sum(x) FROM df1", TypeSQL)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "SELECT sum(x) FROM df1", all[0].Query)
}

func TestRegistryDefaultsTypeToSQL(t *testing.T) {
	r := NewRegistry()
	q, err := r.Save("", "q", "select 1", "")
	require.NoError(t, err)
	assert.Equal(t, TypeSQL, q.Type)
}

func TestRegistryByNameFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	first, err := r.Save("", "dup", "SELECT 1", TypeSQL)
	require.NoError(t, err)
	_, err = r.Save("", "dup", "SELECT 2", TypeSQL)
	require.NoError(t, err)

	got, ok := r.ByName("dup")
	require.True(t, ok)
	assert.Equal(t, first.ID, got.ID)
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	q, err := r.Save("", "q", "select 1", TypeSQL)
	require.NoError(t, err)

	assert.True(t, r.Delete(q.ID))
	assert.False(t, r.Delete(q.ID))
	assert.Empty(t, r.All())
}

func TestReferences(t *testing.T) {
	r := NewRegistry()
	_, err := r.Save("", "customers", "SELECT * FROM df1", TypeSQL)
	require.NoError(t, err)
	_, err = r.Save("", "orders", "SELECT * FROM df2", TypeSQL)
	require.NoError(t, err)
	_, err = r.Save("", "unused", "SELECT 1", TypeSQL)
	require.NoError(t, err)

	refs := r.References("SELECT * FROM orders JOIN customers ON orders.id = customers.id")
	require.Len(t, refs, 2)
	// Registry order, not script order.
	assert.Equal(t, "customers", refs[0].Name)
	assert.Equal(t, "orders", refs[1].Name)
}

func TestReferencesOverApproximates(t *testing.T) {
	r := NewRegistry()
	_, err := r.Save("", "customers", "SELECT 1", TypeSQL)
	require.NoError(t, err)

	// Name inside a string literal still counts.
	refs := r.References("SELECT 'customers' AS label")
	require.Len(t, refs, 1)

	// Substring of a longer identifier does not.
	refs = r.References("SELECT * FROM customers_archive")
	assert.Empty(t, refs)
}

func TestScriptListSave(t *testing.T) {
	l := NewScriptList()

	_, err := l.Save(Script{Name: " ", Code: "x"})
	require.ErrorIs(t, err, ErrEmptyScriptName)
	_, err = l.Save(Script{Name: "s", Code: ""})
	require.ErrorIs(t, err, ErrEmptyScriptCode)

	s, err := l.Save(Script{Name: "monthly", Type: TypePython, Code: "result = {}"})
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)

	s.Code = "result = {'a': df1}"
	replaced, err := l.Save(s)
	require.NoError(t, err)
	assert.Equal(t, s.ID, replaced.ID)
	require.Len(t, l.All(), 1)
	assert.Equal(t, s.Code, l.All()[0].Code)
}
