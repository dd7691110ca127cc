package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/export"
	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var (
		nameFlag   string
		fromFile   string
		typeFlag   string
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Execute a query against the current sources",
		Long: `Execute a query. Saved queries referenced by name are materialized
into the execution environment first (one level deep). The query comes from
the argument, --file, --name, or the active buffer, in that order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			body := ""
			typ := query.Type(typeFlag)
			switch {
			case len(args) == 1:
				body = args[0]
			case fromFile != "":
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("reading query file: %w", err)
				}
				body = string(data)
			case nameFlag != "":
				q, ok := a.ws.Queries.ByName(nameFlag)
				if !ok {
					return fmt.Errorf("no saved query named %q", nameFlag)
				}
				body, typ = q.Query, q.Type
			default:
				body, typ = a.ws.Buffer()
			}
			if body == "" {
				return fmt.Errorf("nothing to run: provide a query, --file, or --name")
			}

			res := a.planner.RunQuery(cmd.Context(), a.ws.Sources, a.ws.Queries, body, typ)
			if res.Failed() {
				if res.Trace != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), res.Trace)
				}
				return fmt.Errorf("query failed: %s", res.Error)
			}

			a.ws.SetBuffer(body, typ)
			a.ws.SetResult(res.Columns, res.Data)

			if exportPath != "" {
				f, err := os.Create(exportPath)
				if err != nil {
					return fmt.Errorf("creating export file: %w", err)
				}
				defer f.Close()
				if err := export.WriteCSV(f, res.Columns, res.Data); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(res.Data), exportPath)
			} else {
				renderResult(cmd.OutOrStdout(), res.Columns, res.Data)
			}

			return a.saveStage(cmd.Context(), workflow.StagePrep)
		},
	}
	cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Run a saved query by name")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Read the query from a file")
	cmd.Flags().StringVar(&typeFlag, "type", "sql", "Query language (sql|python)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the result to a CSV file instead of printing it")
	return cmd
}
