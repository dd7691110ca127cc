package commands

import (
	"encoding/json"
	"fmt"
	"os"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewScriptCommand creates the script command group for the analysis stage.
func NewScriptCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage and run analysis scripts",
	}
	cmd.AddCommand(newScriptAddCommand())
	cmd.AddCommand(newScriptListCommand())
	cmd.AddCommand(newScriptRemoveCommand())
	cmd.AddCommand(newScriptRunCommand())
	cmd.AddCommand(newScriptTestAllCommand())
	return cmd
}

func newScriptAddCommand() *cobra.Command {
	var (
		fromFile string
		typeFlag string
		descFlag string
		idFlag   string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add or replace an analysis script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(fromFile)
			if err != nil {
				return fmt.Errorf("reading script file: %w", err)
			}

			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.ws.SaveScript(query.Script{
				ID:          idFlag,
				Name:        args[0],
				Description: descFlag,
				Type:        query.Type(typeFlag),
				Code:        string(data),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved script %q (%s)\n", saved.Name, saved.ID)
			return a.saveStage(cmd.Context(), workflow.StageAnalysis)
		},
	}
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "Script source file (required)")
	cmd.Flags().StringVar(&typeFlag, "type", "sql", "Script language (sql|python)")
	cmd.Flags().StringVar(&descFlag, "description", "", "Script description")
	cmd.Flags().StringVar(&idFlag, "id", "", "Replace the existing script with this ID")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newScriptListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List analysis scripts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			scripts := a.ws.Scripts.All()
			if len(scripts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scripts.")
				return nil
			}

			t := prettytable.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(prettytable.StyleLight)
			t.AppendHeader(prettytable.Row{"ID", "NAME", "TYPE", "DESCRIPTION"})
			for _, s := range scripts {
				t.AppendRow(prettytable.Row{s.ID, s.Name, s.Type, truncate(s.Description, 50)})
			}
			t.Render()
			return nil
		},
	}
}

func newScriptRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id-or-name>",
		Short: "Remove an analysis script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			id := args[0]
			if !a.ws.DeleteScript(id) {
				s, ok := a.ws.Scripts.ByName(args[0])
				if !ok {
					return fmt.Errorf("no script with id or name %q", args[0])
				}
				a.ws.DeleteScript(s.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed script %s\n", args[0])
			return a.saveStage(cmd.Context(), workflow.StageAnalysis)
		},
	}
}

func newScriptRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <name>",
		Short: "Run one analysis script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			s, ok := a.ws.Scripts.ByName(args[0])
			if !ok {
				return fmt.Errorf("no script named %q", args[0])
			}

			res := a.planner.RunScript(cmd.Context(), a.ws.Sources, a.ws.Queries, s)
			if res.Failed() {
				if res.Trace != "" {
					fmt.Fprintln(cmd.ErrOrStderr(), res.Trace)
				}
				return fmt.Errorf("script %q failed: %s", s.Name, res.Error)
			}

			if res.Data != nil {
				renderResult(cmd.OutOrStdout(), res.Columns, res.Data)
				return nil
			}
			if len(res.Result) > 0 {
				var pretty any
				if err := json.Unmarshal(res.Result, &pretty); err == nil {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(pretty)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "(no output)")
			return nil
		},
	}
}

func newScriptTestAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-all",
		Short: "Run every analysis script and report pass/fail",
		Long: `Execute each analysis script independently against the current
sources. One failing script never stops the batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			scripts := a.ws.Scripts.All()
			if len(scripts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No scripts.")
				return nil
			}

			outcomes := a.planner.TestAll(cmd.Context(), a.ws.Sources, a.ws.Queries, scripts)
			failed := 0
			for _, o := range outcomes {
				if o.Passed() {
					fmt.Fprintf(cmd.OutOrStdout(), "PASS %s\n", o.Name)
					continue
				}
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %s\n", o.Name, o.Error)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d passed, %d failed\n", len(outcomes)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(outcomes))
			}
			return nil
		},
	}
}
