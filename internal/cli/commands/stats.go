package commands

import (
	"fmt"
	"sort"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/stats"
	"github.com/zaidkom/net-zero/internal/table"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <table>",
		Short: "Recompute and display column statistics for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			computed, err := a.ws.RecomputeStats(args[0])
			if err != nil {
				return err
			}
			src, _ := a.ws.Sources.Get(args[0])

			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"COLUMN", "TYPE", "TOTAL", "NULLS", "UNIQUE", "SUMMARY"})

			for _, name := range orderedColumns(src.Columns, computed) {
				cs := computed[name]
				t.AppendRow(prettytable.Row{
					name, cs.DataType, cs.TotalCount, cs.NullCount, cs.UniqueCount, summarize(cs),
				})
			}
			t.Render()
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
}

// orderedColumns lists stat keys in source column order, then any extras.
func orderedColumns(cols []table.Column, computed stats.Table) []string {
	out := make([]string, 0, len(computed))
	seen := make(map[string]struct{}, len(computed))
	for _, col := range cols {
		if _, ok := computed[col.DataIndex]; ok {
			out = append(out, col.DataIndex)
			seen[col.DataIndex] = struct{}{}
		}
	}
	extras := make([]string, 0)
	for name := range computed {
		if _, ok := seen[name]; !ok {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}

// summarize renders the type-specific aggregates of one column.
func summarize(cs stats.ColumnStats) string {
	switch cs.DataType {
	case stats.TypeNumber:
		mode := "-"
		if cs.Mode != nil {
			mode = fmt.Sprintf("%g", *cs.Mode)
		}
		if cs.Min == nil || cs.Max == nil || cs.Mean == nil || cs.Median == nil {
			return ""
		}
		return fmt.Sprintf("min=%g max=%g mean=%g median=%g mode=%s",
			*cs.Min, *cs.Max, *cs.Mean, *cs.Median, mode)
	case stats.TypeDate:
		if cs.MinDate == nil || cs.MaxDate == nil {
			return ""
		}
		return fmt.Sprintf("%s .. %s",
			cs.MinDate.Format(time.DateOnly), cs.MaxDate.Format(time.DateOnly))
	default:
		return ""
	}
}
