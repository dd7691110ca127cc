// Package commands implements the netzero subcommands.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zaidkom/net-zero/internal/cli/config"
	"github.com/zaidkom/net-zero/internal/engine"
	"github.com/zaidkom/net-zero/internal/executor"
	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/state"
	"github.com/zaidkom/net-zero/internal/workflow"
)

// Meta keys used when no workflow record is configured and state lives only
// in the local cache.
const (
	metaBuffer  = "query_buffer"
	metaQueries = "saved_queries"
	metaScripts = "scripts"
)

// app wires the pieces a command needs: the workspace, the local store, the
// clients, and the synchronizer (when a workflow record is configured).
type app struct {
	cfg     *config.Config
	ws      *workflow.Workspace
	store   *state.Store
	client  *workflow.Client
	syncer  *workflow.Synchronizer
	planner *engine.Planner
}

// newApp opens the local store and loads workspace state: from the workflow
// record when one is configured, otherwise from the local cache.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Current()
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	if dir := filepath.Dir(cfg.StatePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state directory: %w", err)
		}
	}
	store, err := state.Open(cfg.StatePath)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		ws:     workflow.NewWorkspace(),
		store:  store,
		client: workflow.NewClient(cfg.StoreURL, workflow.WithLogger(slog.Default())),
		planner: engine.NewPlanner(
			executor.NewClient(cfg.ExecURL, executor.WithLogger(slog.Default())),
			slog.Default(),
		),
	}

	if cfg.WorkflowID > 0 {
		a.syncer = workflow.NewSynchronizer(a.ws, a.client, cfg.WorkflowID,
			workflow.WithLocalCache(store),
			workflow.WithSyncLogger(slog.Default()),
		)
		if err := a.load(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return a, nil
	}

	if err := a.loadLocal(); err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// load pulls both stages from the workflow store.
func (a *app) load(ctx context.Context) error {
	if err := a.syncer.Load(ctx, workflow.StagePrep); err != nil {
		return err
	}
	return a.syncer.Load(ctx, workflow.StageAnalysis)
}

// loadLocal rebuilds the workspace from the local cache alone. Statistics
// are not cached locally, so they are recomputed per source.
func (a *app) loadLocal() error {
	sources, counter, err := a.store.LoadSources()
	if err != nil {
		return err
	}
	a.ws.Sources.Restore(sources, counter)
	for _, src := range sources {
		a.ws.Stats.Recompute(src.TableName, src)
	}

	buffer, err := a.store.GetMeta(metaBuffer)
	if err != nil {
		return err
	}
	a.ws.SetBuffer(buffer, "")

	rawQueries, err := a.store.GetMeta(metaQueries)
	if err != nil {
		return err
	}
	if rawQueries != "" {
		var queries []query.SavedQuery
		if err := json.Unmarshal([]byte(rawQueries), &queries); err == nil {
			a.ws.Queries.Restore(queries)
		}
	}

	raw, err := a.store.GetMeta(metaScripts)
	if err != nil {
		return err
	}
	a.ws.RestoreScripts(workflow.DecodeScripts(raw))
	return nil
}

// saveStage persists one stage: through the synchronizer when a workflow is
// configured, else into the local cache.
func (a *app) saveStage(ctx context.Context, stage workflow.Stage) error {
	if a.syncer != nil {
		return a.syncer.Save(ctx, stage)
	}

	switch stage {
	case workflow.StagePrep:
		if err := a.store.SaveSources(a.ws.Sources.All(), a.ws.Sources.Counter()); err != nil {
			return err
		}
		buffer, _ := a.ws.Buffer()
		if err := a.store.SetMeta(metaBuffer, buffer); err != nil {
			return err
		}
		queries, err := json.Marshal(a.ws.Queries.All())
		if err != nil {
			return err
		}
		return a.store.SetMeta(metaQueries, string(queries))
	case workflow.StageAnalysis:
		encoded, err := workflow.EncodeScripts(a.ws.Scripts.All())
		if err != nil {
			return err
		}
		return a.store.SetMeta(metaScripts, encoded)
	}
	return fmt.Errorf("unknown workflow stage: %s", stage)
}

// Close releases the app's resources.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Default().Warn("closing state store failed", "error", err)
	}
}
