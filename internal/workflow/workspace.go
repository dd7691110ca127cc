package workflow

import (
	"fmt"
	"sync"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/stats"
	"github.com/zaidkom/net-zero/internal/table"
)

// Stage names a workflow stage; the value is the store record field the
// stage's snapshot lives in.
type Stage string

const (
	StagePrep     Stage = "data_prep"
	StageAnalysis Stage = "analysis"
)

// Workspace is the in-memory working state of one workflow: sources, saved
// queries, analysis scripts, statistics, the active query buffer, and the
// cached result of the last execution. Every mutation marks the owning
// stage dirty until the synchronizer pushes a snapshot to the store.
type Workspace struct {
	Sources *table.Set
	Queries *query.Registry
	Scripts *query.ScriptList
	Stats   *stats.Cache

	mu            sync.Mutex
	buffer        string
	bufferType    query.Type
	resultColumns []table.Column
	resultData    []table.Row
	dirty         map[Stage]bool
}

// NewWorkspace creates an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{
		Sources:    table.NewSet(),
		Queries:    query.NewRegistry(),
		Scripts:    query.NewScriptList(),
		Stats:      stats.NewCache(),
		bufferType: query.TypeSQL,
		dirty:      make(map[Stage]bool),
	}
}

// Ingest adds a source from raw cells, computes its statistics, and marks
// the prep stage dirty.
func (w *Workspace) Ingest(cells [][]any, sheetName string) (*table.Source, error) {
	src, err := w.Sources.Ingest(cells, sheetName)
	if err != nil {
		return nil, err
	}
	w.Stats.Recompute(src.TableName, src)
	w.markDirty(StagePrep)
	return src, nil
}

// RenameSource renames a source and moves its cached statistics to the new
// key. Saved queries mentioning the old name are left alone.
func (w *Workspace) RenameSource(oldName, newName string) error {
	if err := w.Sources.Rename(oldName, newName); err != nil {
		return err
	}
	w.Stats.Rename(oldName, newName)
	w.markDirty(StagePrep)
	return nil
}

// DeleteSource removes a source and its statistics. Saved queries that
// referenced it become dangling and resolve to a missing table later.
func (w *Workspace) DeleteSource(tableName string) error {
	if !w.Sources.Delete(tableName) {
		return fmt.Errorf("%w: %s", table.ErrSourceMissing, tableName)
	}
	w.Stats.Delete(tableName)
	w.markDirty(StagePrep)
	return nil
}

// RecomputeStats refreshes the statistics of one source.
func (w *Workspace) RecomputeStats(tableName string) (stats.Table, error) {
	src, ok := w.Sources.Get(tableName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", table.ErrSourceMissing, tableName)
	}
	t := w.Stats.Recompute(tableName, src)
	w.markDirty(StagePrep)
	return t, nil
}

// SaveQuery stores a saved query and marks the prep stage dirty.
func (w *Workspace) SaveQuery(id, name, body string, typ query.Type) (query.SavedQuery, error) {
	saved, err := w.Queries.Save(id, name, body, typ)
	if err != nil {
		return query.SavedQuery{}, err
	}
	w.markDirty(StagePrep)
	return saved, nil
}

// DeleteQuery removes a saved query by ID.
func (w *Workspace) DeleteQuery(id string) bool {
	if !w.Queries.Delete(id) {
		return false
	}
	w.markDirty(StagePrep)
	return true
}

// SaveScript stores an analysis script and marks the analysis stage dirty.
func (w *Workspace) SaveScript(s query.Script) (query.Script, error) {
	saved, err := w.Scripts.Save(s)
	if err != nil {
		return query.Script{}, err
	}
	w.markDirty(StageAnalysis)
	return saved, nil
}

// DeleteScript removes an analysis script by ID.
func (w *Workspace) DeleteScript(id string) bool {
	if !w.Scripts.Delete(id) {
		return false
	}
	w.markDirty(StageAnalysis)
	return true
}

// SetBuffer replaces the active query buffer.
func (w *Workspace) SetBuffer(body string, typ query.Type) {
	w.mu.Lock()
	w.buffer = body
	if typ != "" {
		w.bufferType = typ
	}
	w.mu.Unlock()
	w.markDirty(StagePrep)
}

// Buffer returns the active query buffer and its language.
func (w *Workspace) Buffer() (string, query.Type) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer, w.bufferType
}

// SetResult caches the columns and rows of the last execution.
func (w *Workspace) SetResult(columns []table.Column, rows []table.Row) {
	w.mu.Lock()
	w.resultColumns = columns
	w.resultData = rows
	w.mu.Unlock()
	w.markDirty(StagePrep)
}

// Result returns the cached result of the last execution.
func (w *Workspace) Result() ([]table.Column, []table.Row) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.resultColumns, w.resultData
}

// Dirty reports whether a stage has unsaved changes.
func (w *Workspace) Dirty(stage Stage) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirty[stage]
}

func (w *Workspace) markDirty(stage Stage) {
	w.mu.Lock()
	w.dirty[stage] = true
	w.mu.Unlock()
}

func (w *Workspace) clearDirty(stage Stage) {
	w.mu.Lock()
	w.dirty[stage] = false
	w.mu.Unlock()
}

// Snapshot captures the prep stage for persistence.
func (w *Workspace) Snapshot() *PrepSnapshot {
	w.mu.Lock()
	buffer := w.buffer
	cols := w.resultColumns
	rows := w.resultData
	w.mu.Unlock()

	return &PrepSnapshot{
		Query:         buffer,
		SavedQueries:  w.Queries.All(),
		Sources:       w.Sources.All(),
		TableCounter:  w.Sources.Counter(),
		ResultColumns: cols,
		ResultData:    rows,
		TableStats:    w.Stats.Snapshot(),
	}
}

// RestorePrep repopulates the prep stage from a snapshot and clears its
// dirty flag.
func (w *Workspace) RestorePrep(snap *PrepSnapshot) {
	w.Sources.Restore(snap.Sources, snap.TableCounter)
	w.Queries.Restore(snap.SavedQueries)
	w.Stats.Restore(snap.TableStats)

	w.mu.Lock()
	w.buffer = snap.Query
	w.resultColumns = snap.ResultColumns
	w.resultData = snap.ResultData
	w.dirty[StagePrep] = false
	w.mu.Unlock()
}

// RestoreScripts repopulates the analysis stage from a snapshot and clears
// its dirty flag.
func (w *Workspace) RestoreScripts(scripts []query.Script) {
	w.Scripts.Restore(scripts)
	w.clearDirty(StageAnalysis)
}
