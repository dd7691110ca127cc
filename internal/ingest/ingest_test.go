package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "People"))
	require.NoError(t, f.SetSheetRow("People", "A1", &[]any{"Name", "Age"}))
	require.NoError(t, f.SetSheetRow("People", "A2", &[]any{"Alice", 30}))
	require.NoError(t, f.SetSheetRow("People", "A3", &[]any{"Bob", 25}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	sheet, err := ReadXLSX(bytes.NewReader(writeWorkbook(t)))
	require.NoError(t, err)

	assert.Equal(t, "People", sheet.Name)
	require.Len(t, sheet.Cells, 3)
	assert.Equal(t, []any{"Name", "Age"}, sheet.Cells[0])
	assert.Equal(t, []any{"Alice", "30"}, sheet.Cells[1])
}

func TestReadCSV(t *testing.T) {
	data := "Name,Age\nAlice,30\nBob,25\n"
	sheet, err := ReadCSV(strings.NewReader(data), "people")
	require.NoError(t, err)

	assert.Equal(t, "people", sheet.Name)
	require.Len(t, sheet.Cells, 3)
	assert.Equal(t, []any{"Name", "Age"}, sheet.Cells[0])
	assert.Equal(t, []any{"Bob", "25"}, sheet.Cells[2])
}

func TestReadCSVRaggedRows(t *testing.T) {
	sheet, err := ReadCSV(strings.NewReader("a,b,c\n1\n"), "ragged")
	require.NoError(t, err)
	assert.Len(t, sheet.Cells[1], 1)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	xlsxPath := filepath.Join(dir, "people.xlsx")
	require.NoError(t, os.WriteFile(xlsxPath, writeWorkbook(t), 0o644))
	sheet, err := ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.Equal(t, "People", sheet.Name)

	csvPath := filepath.Join(dir, "orders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id\n1\n"), 0o644))
	sheet, err = ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "orders", sheet.Name)

	_, err = ReadFile(filepath.Join(dir, "notes.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}
