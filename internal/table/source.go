// Package table provides the in-memory tabular source model.
// It normalizes raw spreadsheet data (header row + data rows) into named,
// column-oriented sources addressable by table name.
package table

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Row is a single data row keyed by column data index.
// Every ingested row carries a synthetic "key" entry holding its row index.
type Row = map[string]any

// RowKey is the synthetic per-row index field added at ingestion time.
const RowKey = "key"

// Column describes one column of a source or result table.
// DataType is advisory only: it is populated by the statistics engine and
// drives filter UI decisions, never execution.
type Column struct {
	Title     string `json:"title"`
	DataIndex string `json:"dataIndex"`
	Key       string `json:"key"`
	DataType  string `json:"dataType,omitempty"`
}

// Source is a named in-memory table originating from an uploaded spreadsheet.
type Source struct {
	TableName string   `json:"tableName"`
	SheetName string   `json:"sheetName"`
	Columns   []Column `json:"columns"`
	Rows      []Row    `json:"data"`
	// FilePath points at the uploaded file on the backing store, when known.
	FilePath string `json:"filePath,omitempty"`
}

// Validation errors returned by Set operations.
var (
	ErrEmptySheet    = errors.New("no data found in sheet")
	ErrEmptyName     = errors.New("table name cannot be empty")
	ErrSourceMissing = errors.New("source not found")
)

// Set holds all live sources of a workflow together with the table name
// counter. Names are allocated as df<N> where N increases monotonically and
// is never reused, even after a source is deleted.
type Set struct {
	mu      sync.RWMutex
	sources []*Source
	counter int
}

// NewSet creates an empty source set with the counter at 1.
func NewSet() *Set {
	return &Set{counter: 1}
}

// Ingest converts a raw 2-D cell array into a Source and adds it to the set.
// The first row is taken as column headers, the remainder as data. Ingestion
// is rejected when there is no header row or no data rows; no source is
// created in that case.
func (s *Set) Ingest(cells [][]any, sheetName string) (*Source, error) {
	if len(cells) < 2 {
		return nil, ErrEmptySheet
	}

	header := cells[0]
	columns := make([]Column, 0, len(header))
	for _, h := range header {
		name := fmt.Sprint(h)
		columns = append(columns, Column{Title: name, DataIndex: name, Key: name})
	}

	rows := make([]Row, 0, len(cells)-1)
	for idx, raw := range cells[1:] {
		row := Row{RowKey: idx}
		for i, col := range columns {
			if i < len(raw) {
				row[col.DataIndex] = raw[i]
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	src := &Source{
		TableName: fmt.Sprintf("df%d", s.counter),
		SheetName: sheetName,
		Columns:   columns,
		Rows:      rows,
	}
	s.counter++
	s.sources = append(s.sources, src)
	return src, nil
}

// Rename changes the table name of an existing source. The new name must be
// non-empty after trimming. Renaming cascades to nothing else: saved queries
// still mentioning the old name go stale and resolve to a missing table.
func (s *Set) Rename(oldName, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range s.sources {
		if src.TableName == oldName {
			src.TableName = newName
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSourceMissing, oldName)
}

// Delete removes the source with the given table name. It reports whether a
// source was removed. The table name counter is unaffected.
func (s *Set) Delete(tableName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, src := range s.sources {
		if src.TableName == tableName {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			return true
		}
	}
	return false
}

// Get returns the source with the given table name.
func (s *Set) Get(tableName string) (*Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, src := range s.sources {
		if src.TableName == tableName {
			return src, true
		}
	}
	return nil, false
}

// All returns the live sources in insertion order.
func (s *Set) All() []*Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Len returns the number of live sources.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// Counter returns the next table number to be allocated.
func (s *Set) Counter() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counter
}

// Restore replaces the set contents with a previously persisted state.
// A counter below 1 is normalized to 1.
func (s *Set) Restore(sources []*Source, counter int) {
	if counter < 1 {
		counter = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append([]*Source(nil), sources...)
	s.counter = counter
}

// Environment builds the base execution environment from all live sources:
// a mapping of table name to row set.
func (s *Set) Environment() map[string][]Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env := make(map[string][]Row, len(s.sources))
	for _, src := range s.sources {
		env[src.TableName] = src.Rows
	}
	return env
}
