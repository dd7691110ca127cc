package commands

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// NewREPLCommand creates the repl command.
func NewREPLCommand() *cobra.Command {
	var typeFlag string
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Interactive query loop against the execution endpoint",
		Long: `Read queries interactively and execute them against the current
sources. Saved queries referenced by name are materialized first.
Statements end with a semicolon; dot-commands control the session.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			historyFile := filepath.Join(filepath.Dir(a.cfg.StatePath), "query_history")
			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "netzero> ",
				HistoryFile:     historyFile,
				InterruptPrompt: "^C",
				EOFPrompt:       ".quit",
			})
			if err != nil {
				return fmt.Errorf("failed to initialize REPL: %w", err)
			}
			defer func() { _ = rl.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "netzero REPL")
			fmt.Fprintln(out, "Type .help for commands, .quit to exit")
			fmt.Fprintln(out)

			var buffer strings.Builder
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					buffer.Reset()
					rl.SetPrompt("netzero> ")
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}

				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}

				if strings.HasPrefix(line, ".") {
					if line == ".quit" || line == ".exit" {
						return nil
					}
					a.handleDotCommand(cmd, line)
					continue
				}

				buffer.WriteString(line)
				if !strings.HasSuffix(line, ";") {
					buffer.WriteString(" ")
					rl.SetPrompt("    ...> ")
					continue
				}
				rl.SetPrompt("netzero> ")

				body := strings.TrimSuffix(strings.TrimSpace(buffer.String()), ";")
				buffer.Reset()

				res := a.planner.RunQuery(cmd.Context(), a.ws.Sources, a.ws.Queries, body, query.Type(typeFlag))
				if res.Failed() {
					fmt.Fprintf(out, "error: %s\n", res.Error)
					continue
				}
				a.ws.SetBuffer(body, query.Type(typeFlag))
				a.ws.SetResult(res.Columns, res.Data)
				renderResult(out, res.Columns, res.Data)
			}
		},
	}
	cmd.Flags().StringVar(&typeFlag, "type", "sql", "Query language (sql|python)")
	return cmd
}

// handleDotCommand processes REPL dot-commands.
func (a *app) handleDotCommand(cmd *cobra.Command, line string) {
	out := cmd.OutOrStdout()
	switch line {
	case ".help":
		fmt.Fprintln(out, "Commands:")
		fmt.Fprintln(out, "  .tables   List sources")
		fmt.Fprintln(out, "  .queries  List saved queries")
		fmt.Fprintln(out, "  .save     Push workspace state to the workflow store")
		fmt.Fprintln(out, "  .quit     Exit the REPL")
	case ".tables":
		for _, src := range a.ws.Sources.All() {
			fmt.Fprintf(out, "%s (%d rows)\n", src.TableName, len(src.Rows))
		}
	case ".queries":
		for _, q := range a.ws.Queries.All() {
			fmt.Fprintf(out, "%s [%s]\n", q.Name, q.Type)
		}
	case ".save":
		if err := a.saveStage(cmd.Context(), workflow.StagePrep); err != nil {
			fmt.Fprintf(out, "save failed: %v\n", err)
			return
		}
		fmt.Fprintln(out, "saved")
	default:
		fmt.Fprintf(out, "unknown command %s (try .help)\n", line)
	}
}
