package commands

import (
	"encoding/json"
	"fmt"
	"io"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/zaidkom/net-zero/internal/table"
)

// renderResult prints a result table with go-pretty.
func renderResult(w io.Writer, columns []table.Column, rows []table.Row) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := prettytable.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(prettytable.StyleLight)

	header := make(prettytable.Row, len(columns))
	for i, col := range columns {
		header[i] = col.Title
	}
	t.AppendHeader(header)

	for _, row := range rows {
		out := make(prettytable.Row, len(columns))
		for i, col := range columns {
			out[i] = formatValue(row[col.DataIndex])
		}
		t.AppendRow(out)
	}

	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
}

// formatValue renders a cell for display.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case float64:
		// Trim the .0 off integral values the way JSON decoding left them.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(encoded)
	}
}
