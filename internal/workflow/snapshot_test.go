package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/stats"
	"github.com/zaidkom/net-zero/internal/table"
)

func TestPrepSnapshotRoundTrip(t *testing.T) {
	snap := &PrepSnapshot{
		Query: "SELECT * FROM df1",
		SavedQueries: []query.SavedQuery{
			{ID: "q1", Name: "totals", Query: "SELECT count(*) FROM df1", Type: query.TypeSQL},
		},
		Sources: []*table.Source{{
			TableName: "df1",
			SheetName: "People",
			Columns:   []table.Column{{Title: "Name", DataIndex: "Name", Key: "Name", DataType: "string"}},
			Rows:      []table.Row{{"key": float64(0), "Name": "Alice"}},
		}},
		TableCounter:  2,
		ResultColumns: []table.Column{{Title: "n", DataIndex: "n", Key: "n"}},
		ResultData:    []table.Row{{"n": float64(1)}},
		TableStats: map[string]stats.Table{
			"df1": {"Name": stats.ColumnStats{DataType: "string", TotalCount: 1, UniqueCount: 1}},
		},
	}

	encoded, err := EncodePrep(snap)
	require.NoError(t, err)

	decoded := DecodePrep(encoded)
	assert.Equal(t, snap, decoded)
}

func TestDecodePrepLegacyBareQuery(t *testing.T) {
	decoded := DecodePrep("SELECT * FROM old_table")

	assert.Equal(t, "SELECT * FROM old_table", decoded.Query)
	assert.Empty(t, decoded.Sources)
	assert.Empty(t, decoded.SavedQueries)
	assert.Equal(t, 1, decoded.TableCounter)
}

func TestDecodePrepNormalizesCounter(t *testing.T) {
	decoded := DecodePrep(`{"query":"","tableCounter":0}`)
	assert.Equal(t, 1, decoded.TableCounter)
}

func TestScriptsRoundTrip(t *testing.T) {
	scripts := []query.Script{
		{ID: "s1", Name: "monthly", Type: query.TypePython, Code: "result = {}"},
	}

	encoded, err := EncodeScripts(scripts)
	require.NoError(t, err)
	assert.Equal(t, scripts, DecodeScripts(encoded))
}

func TestEncodeScriptsNilIsEmptyArray(t *testing.T) {
	encoded, err := EncodeScripts(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", encoded)
}

func TestDecodeScriptsFallsBackToEmpty(t *testing.T) {
	assert.Nil(t, DecodeScripts("not json"))
	assert.Nil(t, DecodeScripts(`{"scripts":[]}`))
}
