package query

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Script is an analysis-stage script. Unlike saved queries, scripts are
// executed on demand and never referenced by name from other scripts.
type Script struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
	Code        string `json:"code"`
}

// Script validation errors.
var (
	ErrEmptyScriptName = errors.New("script name cannot be empty")
	ErrEmptyScriptCode = errors.New("script code cannot be empty")
)

// ScriptList holds the analysis scripts of a workflow in insertion order.
type ScriptList struct {
	mu      sync.RWMutex
	scripts []Script
}

// NewScriptList creates an empty script list.
func NewScriptList() *ScriptList {
	return &ScriptList{}
}

// Save validates and stores a script, replacing in place when id matches an
// existing entry.
func (l *ScriptList) Save(s Script) (Script, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Script{}, ErrEmptyScriptName
	}
	if strings.TrimSpace(s.Code) == "" {
		return Script{}, ErrEmptyScriptCode
	}
	if s.Type == "" {
		s.Type = TypeSQL
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s.ID != "" {
		for i, existing := range l.scripts {
			if existing.ID == s.ID {
				l.scripts[i] = s
				return s, nil
			}
		}
	}

	s.ID = uuid.NewString()
	l.scripts = append(l.scripts, s)
	return s, nil
}

// Delete removes the script with the given ID and reports whether an entry
// was removed.
func (l *ScriptList) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.scripts {
		if s.ID == id {
			l.scripts = append(l.scripts[:i], l.scripts[i+1:]...)
			return true
		}
	}
	return false
}

// ByName returns the first script with the given name.
func (l *ScriptList) ByName(name string) (Script, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.scripts {
		if s.Name == name {
			return s, true
		}
	}
	return Script{}, false
}

// All returns the scripts in insertion order.
func (l *ScriptList) All() []Script {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Script, len(l.scripts))
	copy(out, l.scripts)
	return out
}

// Restore replaces the list contents with a persisted snapshot.
func (l *ScriptList) Restore(scripts []Script) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scripts = append([]Script(nil), scripts...)
}
