// Package query manages the saved-query registry and the analysis-stage
// script list, including identifier-based reference extraction.
package query

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Type identifies the language a saved query or script is written in.
type Type string

const (
	TypeSQL    Type = "sql"
	TypePython Type = "python"
)

// SavedQuery is a named, reusable query. Its name doubles as a table name
// when another query references it.
type SavedQuery struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Query string `json:"query"`
	Type  Type   `json:"type"`
}

// Validation errors returned by registry operations.
var (
	ErrEmptyQueryName = errors.New("query name cannot be empty")
	ErrEmptyQueryBody = errors.New("query body cannot be empty")
)

// Registry holds the saved queries of a workflow in insertion order.
// Duplicate names are allowed; lookups return the first match.
type Registry struct {
	mu      sync.RWMutex
	queries []SavedQuery
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Save validates and stores a query. When id matches an existing entry the
// entry is replaced in place; otherwise a new entry with a fresh ID is
// appended. The stored query is returned.
func (r *Registry) Save(id, name, body string, typ Type) (SavedQuery, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SavedQuery{}, ErrEmptyQueryName
	}
	if strings.TrimSpace(body) == "" {
		return SavedQuery{}, ErrEmptyQueryBody
	}
	if typ == "" {
		typ = TypeSQL
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id != "" {
		for i, q := range r.queries {
			if q.ID == id {
				r.queries[i] = SavedQuery{ID: id, Name: name, Query: body, Type: typ}
				return r.queries[i], nil
			}
		}
	}

	saved := SavedQuery{ID: uuid.NewString(), Name: name, Query: body, Type: typ}
	r.queries = append(r.queries, saved)
	return saved, nil
}

// Delete removes the query with the given ID and reports whether an entry
// was removed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, q := range r.queries {
		if q.ID == id {
			r.queries = append(r.queries[:i], r.queries[i+1:]...)
			return true
		}
	}
	return false
}

// ByName returns the first query with the given name.
func (r *Registry) ByName(name string) (SavedQuery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.queries {
		if q.Name == name {
			return q, true
		}
	}
	return SavedQuery{}, false
}

// ByID returns the query with the given ID.
func (r *Registry) ByID(id string) (SavedQuery, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, q := range r.queries {
		if q.ID == id {
			return q, true
		}
	}
	return SavedQuery{}, false
}

// All returns the saved queries in insertion order.
func (r *Registry) All() []SavedQuery {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SavedQuery, len(r.queries))
	copy(out, r.queries)
	return out
}

// Restore replaces the registry contents with a persisted snapshot.
func (r *Registry) Restore(queries []SavedQuery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append([]SavedQuery(nil), queries...)
}
