package commands

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"log/slog"

	"github.com/zaidkom/net-zero/internal/cli/config"
	"github.com/zaidkom/net-zero/internal/server"
	"github.com/zaidkom/net-zero/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the embedded workflow store server",
		Long: `Serve the workflow store API from the local SQLite database. Intended
for development and testing; point store_url at it to run end to end
without external services.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Current()
			if port == 0 {
				port = cfg.Port
			}

			if dir := filepath.Dir(cfg.StatePath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			store, err := state.Open(cfg.StatePath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Config{
				Store:  store,
				Port:   port,
				Logger: slog.Default(),
			})
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default: config port)")
	return cmd
}
