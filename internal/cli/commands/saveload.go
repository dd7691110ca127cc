package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Push workspace state to the workflow store",
		Long: `Serialize the data-prep and analysis snapshots and store them in the
configured workflow record. Requires --workflow (or the workflow config key).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.syncer == nil {
				return fmt.Errorf("no workflow configured: set --workflow to synchronize with the store")
			}

			if err := a.syncer.Save(cmd.Context(), workflow.StagePrep); err != nil {
				return err
			}
			if err := a.syncer.Save(cmd.Context(), workflow.StageAnalysis); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved workflow %d\n", a.cfg.WorkflowID)
			return nil
		},
	}
}

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Pull workspace state from the workflow store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.syncer == nil {
				return fmt.Errorf("no workflow configured: set --workflow to synchronize with the store")
			}

			// newApp already loaded both stages; report what arrived.
			fmt.Fprintf(cmd.OutOrStdout(), "Loaded workflow %d: %d sources, %d saved queries, %d scripts\n",
				a.cfg.WorkflowID,
				a.ws.Sources.Len(),
				len(a.ws.Queries.All()),
				len(a.ws.Scripts.All()),
			)
			return nil
		},
	}
}
