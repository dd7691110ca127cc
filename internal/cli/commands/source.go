package commands

import (
	"fmt"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/ingest"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewSourceCommand creates the source command group.
func NewSourceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "source",
		Short: "Manage tabular sources",
		Long:  `Ingest spreadsheets as named tables and manage the resulting sources.`,
	}
	cmd.AddCommand(newSourceAddCommand())
	cmd.AddCommand(newSourceListCommand())
	cmd.AddCommand(newSourceRenameCommand())
	cmd.AddCommand(newSourceRemoveCommand())
	return cmd
}

func newSourceAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Ingest spreadsheet files as new sources",
		Long: `Parse one or more spreadsheet files (XLSX or CSV) and add each first
sheet as a new source. Table names are allocated automatically.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			for _, path := range args {
				sheet, err := ingest.ReadFile(path)
				if err != nil {
					return err
				}
				src, err := a.ws.Ingest(sheet.Cells, sheet.Name)
				if err != nil {
					return fmt.Errorf("ingesting %s: %w", path, err)
				}
				src.FilePath = path
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s): %d columns, %d rows\n",
					src.TableName, src.SheetName, len(src.Columns), len(src.Rows))
			}
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
}

func newSourceListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			sources := a.ws.Sources.All()
			if len(sources) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources.")
				return nil
			}

			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"TABLE", "SHEET", "COLUMNS", "ROWS"})
			for _, src := range sources {
				t.AppendRow(prettytable.Row{src.TableName, src.SheetName, len(src.Columns), len(src.Rows)})
			}
			t.Render()
			return nil
		},
	}
}

func newSourceRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a source table",
		Long: `Rename a source. Saved queries are not rewritten: any query still
mentioning the old name will resolve to a missing table.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ws.RenameSource(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %s\n", args[0], args[1])
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
}

func newSourceRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <table>",
		Short: "Remove a source table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.ws.DeleteSource(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
}
