// Package export writes execution results out of the system.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zaidkom/net-zero/internal/table"
)

// WriteCSV writes a result table as CSV: one header line of column titles,
// then one line per row with every cell JSON-encoded. JSON encoding keeps
// strings quoted and embedded commas harmless without a second quoting
// scheme.
func WriteCSV(w io.Writer, columns []table.Column, rows []table.Row) error {
	titles := make([]string, len(columns))
	for i, col := range columns {
		titles[i] = col.Title
	}
	if _, err := fmt.Fprintln(w, strings.Join(titles, ",")); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			encoded, err := json.Marshal(row[col.DataIndex])
			if err != nil {
				return fmt.Errorf("encoding cell %s: %w", col.DataIndex, err)
			}
			cells[i] = string(encoded)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, ",")); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	return nil
}
