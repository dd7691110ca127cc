package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidkom/net-zero/internal/table"
)

func TestWriteCSV(t *testing.T) {
	columns := []table.Column{
		{Title: "Name", DataIndex: "Name"},
		{Title: "Age", DataIndex: "Age"},
	}
	rows := []table.Row{
		{"Name": "Alice", "Age": 30},
		{"Name": "Bo,b", "Age": nil},
	}

	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, columns, rows))

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name,Age", lines[0])
	assert.Equal(t, `"Alice",30`, lines[1])
	assert.Equal(t, `"Bo,b",null`, lines[2])
}

func TestWriteCSVNoRows(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, WriteCSV(&sb, []table.Column{{Title: "x", DataIndex: "x"}}, nil))
	assert.Equal(t, "x\n", sb.String())
}
