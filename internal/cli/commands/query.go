package commands

import (
	"fmt"
	"os"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewQueryCommand creates the query command group.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage saved queries",
		Long: `Saved queries are named and reusable: another query or script that
mentions a saved query's name gets its materialized output as a table.`,
	}
	cmd.AddCommand(newQuerySaveCommand())
	cmd.AddCommand(newQueryListCommand())
	cmd.AddCommand(newQueryRemoveCommand())
	return cmd
}

func newQuerySaveCommand() *cobra.Command {
	var (
		fromFile string
		typeFlag string
		idFlag   string
	)
	cmd := &cobra.Command{
		Use:   "save <name> [body]",
		Short: "Save a query under a name",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := ""
			if len(args) == 2 {
				body = args[1]
			}
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("reading query file: %w", err)
				}
				body = string(data)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.ws.SaveQuery(idFlag, args[0], body, query.Type(typeFlag))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved query %q (%s)\n", saved.Name, saved.ID)
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the query body from a file")
	cmd.Flags().StringVar(&typeFlag, "type", "sql", "Query language (sql|python)")
	cmd.Flags().StringVar(&idFlag, "id", "", "Replace the existing query with this ID")
	return cmd
}

func newQueryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			queries := a.ws.Queries.All()
			if len(queries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved queries.")
				return nil
			}

			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"ID", "NAME", "TYPE", "QUERY"})
			for _, q := range queries {
				t.AppendRow(prettytable.Row{q.ID, q.Name, q.Type, truncate(q.Query, 60)})
			}
			t.Render()
			return nil
		},
	}
}

func newQueryRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-name>",
		Short: "Remove a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			if _, ok := a.ws.Queries.ByID(id); !ok {
				q, ok := a.ws.Queries.ByName(args[0])
				if !ok {
					return fmt.Errorf("no saved query with id or name %q", args[0])
				}
				id = q.ID
			}

			a.ws.DeleteQuery(id)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed query %s\n", args[0])
			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
