package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/cli/config"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewWorkflowCommand creates the workflow command group for managing records
// in the workflow store.
func NewWorkflowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflow records in the store",
	}
	cmd.AddCommand(newWorkflowCreateCommand())
	cmd.AddCommand(newWorkflowListCommand())
	cmd.AddCommand(newWorkflowRemoveCommand())
	return cmd
}

func storeClient() (*workflow.Client, *config.Config, error) {
	cfg := config.Current()
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}
	return workflow.NewClient(cfg.StoreURL, workflow.WithLogger(slog.Default())), cfg, nil
}

func newWorkflowCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a workflow record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := storeClient()
			if err != nil {
				return err
			}

			rec, err := client.Create(cmd.Context(), cfg.Username, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created workflow %d (%s)\n", rec.ID, rec.Name)
			return nil
		},
	}
}

func newWorkflowListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflow records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, cfg, err := storeClient()
			if err != nil {
				return err
			}

			records, err := client.List(cmd.Context(), cfg.Username)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workflows.")
				return nil
			}

			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"ID", "NAME", "PREP", "ANALYSIS"})
			for _, rec := range records {
				t.AppendRow(prettytable.Row{rec.ID, rec.Name, hasContent(rec.DataPrep), hasContent(rec.Analysis)})
			}
			t.Render()
			return nil
		},
	}
}

func newWorkflowRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a workflow record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid workflow id %q", args[0])
			}

			client, _, err := storeClient()
			if err != nil {
				return err
			}
			if err := client.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workflow %d\n", id)
			return nil
		},
	}
}

func hasContent(field string) string {
	if field == "" {
		return "-"
	}
	return "yes"
}
