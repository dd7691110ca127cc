// Package ingest reads spreadsheet files into the raw 2-D cell arrays the
// tabular model consumes. Format handling stops here: the rest of the
// system never sees file bytes.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one parsed sheet: its name and raw cells, header row first.
type Sheet struct {
	Name  string
	Cells [][]any
}

// ReadXLSX parses the first sheet of an XLSX document.
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", name, err)
	}
	return &Sheet{Name: name, Cells: toCells(rows)}, nil
}

// ReadCSV parses CSV data. Ragged rows are allowed; the model pads short
// rows against the header.
func ReadCSV(r io.Reader, name string) (*Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return &Sheet{Name: name, Cells: toCells(records)}, nil
}

// ReadFile parses a spreadsheet file, choosing the format by extension.
// CSV sheets are named after the file.
func ReadFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	base := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return ReadXLSX(f)
	case ".csv":
		return ReadCSV(f, strings.TrimSuffix(base, filepath.Ext(base)))
	default:
		return nil, fmt.Errorf("unsupported spreadsheet format: %s", base)
	}
}

func toCells(rows [][]string) [][]any {
	cells := make([][]any, len(rows))
	for i, row := range rows {
		cells[i] = make([]any, len(row))
		for j, v := range row {
			cells[i][j] = v
		}
	}
	return cells
}
