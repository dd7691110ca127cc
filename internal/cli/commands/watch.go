package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zaidkom/net-zero/internal/ingest"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// watchDebounce coalesces the burst of events a single file copy produces.
const watchDebounce = 500 * time.Millisecond

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Watch a drop directory and ingest new spreadsheets",
		Long: `Observe a directory and ingest every spreadsheet file dropped into it
as a new source. Events are debounced so a file is read once its writer
has settled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			dir := a.cfg.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating watch directory: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for spreadsheets (Ctrl-C to stop)\n", dir)
			return watchDir(ctx, dir, func(path string) {
				sheet, err := ingest.ReadFile(path)
				if err != nil {
					slog.Default().Warn("skipping file", "path", path, "error", err)
					return
				}
				src, err := a.ws.Ingest(sheet.Cells, sheet.Name)
				if err != nil {
					slog.Default().Warn("ingestion rejected", "path", path, "error", err)
					return
				}
				src.FilePath = path
				if err := a.saveStage(ctx, workflow.StagePrep); err != nil {
					slog.Default().Error("saving after ingestion failed", "error", err)
					return
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s from %s\n", src.TableName, filepath.Base(path))
			})
		},
	}
	return cmd
}

// watchDir runs the fsnotify loop until the context is cancelled, invoking
// handle once per settled spreadsheet file.
func watchDir(ctx context.Context, dir string, handle func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isSpreadsheet(event.Name) {
				continue
			}

			// Reset the per-file timer so we fire once the writer settles.
			mu.Lock()
			if timer, ok := timers[event.Name]; ok {
				timer.Stop()
			}
			path := event.Name
			timers[path] = time.AfterFunc(watchDebounce, func() {
				mu.Lock()
				delete(timers, path)
				mu.Unlock()
				handle(path)
			})
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Default().Warn("watch error", "error", err)
		}
	}
}

func isSpreadsheet(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls", ".csv":
		return true
	}
	return false
}
