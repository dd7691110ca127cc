// Package state is the device-local SQLite tier. It caches sources and the
// table name counter between CLI invocations and backs the embedded
// workflow store server.
package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/zaidkom/net-zero/internal/table"
)

// counterKey is the meta row holding the table name counter.
const counterKey = "table_counter"

// ErrWorkflowNotFound is returned when a workflow ID has no row.
var ErrWorkflowNotFound = errors.New("workflow not found")

// Workflow is a workflow row as stored locally. The stage fields are opaque
// JSON documents.
type Workflow struct {
	ID            int
	Username      string
	Name          string
	DataPrep      string
	Analysis      string
	Visualisation string
}

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and runs pending migrations.
// Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveSources replaces the cached source set and counter in one transaction.
func (s *Store) SaveSources(sources []*table.Source, counter int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cached_sources`); err != nil {
		return fmt.Errorf("clearing source cache: %w", err)
	}
	for i, src := range sources {
		payload, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encoding source %s: %w", src.TableName, err)
		}
		_, err = tx.Exec(
			`INSERT INTO cached_sources (table_name, position, payload) VALUES (?, ?, ?)`,
			src.TableName, i, string(payload),
		)
		if err != nil {
			return fmt.Errorf("caching source %s: %w", src.TableName, err)
		}
	}

	_, err = tx.Exec(
		`INSERT INTO cache_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		counterKey, strconv.Itoa(counter),
	)
	if err != nil {
		return fmt.Errorf("caching table counter: %w", err)
	}
	return tx.Commit()
}

// LoadSources returns the cached sources in insertion order and the counter.
// An empty cache yields no sources and a counter of 1.
func (s *Store) LoadSources() ([]*table.Source, int, error) {
	rows, err := s.db.Query(`SELECT payload FROM cached_sources ORDER BY position`)
	if err != nil {
		return nil, 0, fmt.Errorf("reading source cache: %w", err)
	}
	defer rows.Close()

	var sources []*table.Source
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, 0, fmt.Errorf("scanning cached source: %w", err)
		}
		var src table.Source
		if err := json.Unmarshal([]byte(payload), &src); err != nil {
			return nil, 0, fmt.Errorf("decoding cached source: %w", err)
		}
		sources = append(sources, &src)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating source cache: %w", err)
	}

	counter := 1
	var value string
	err = s.db.QueryRow(`SELECT value FROM cache_meta WHERE key = ?`, counterKey).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, 0, fmt.Errorf("reading table counter: %w", err)
	default:
		if n, err := strconv.Atoi(value); err == nil && n >= 1 {
			counter = n
		}
	}
	return sources, counter, nil
}

// SetMeta upserts an arbitrary cache metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO cache_meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("writing meta %s: %w", key, err)
	}
	return nil
}

// GetMeta reads a cache metadata value; a missing key yields "".
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM cache_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading meta %s: %w", key, err)
	}
	return value, nil
}

// CreateWorkflow inserts a new workflow row.
func (s *Store) CreateWorkflow(username, name string) (*Workflow, error) {
	res, err := s.db.Exec(
		`INSERT INTO workflows (username, name, data_prep, analysis, visualisation)
		 VALUES (?, ?, '', '', '')`,
		username, name,
	)
	if err != nil {
		return nil, fmt.Errorf("creating workflow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading workflow id: %w", err)
	}
	return s.GetWorkflow(int(id))
}

// GetWorkflow returns a workflow row by ID.
func (s *Store) GetWorkflow(id int) (*Workflow, error) {
	var wf Workflow
	err := s.db.QueryRow(
		`SELECT id, username, name, data_prep, analysis, visualisation
		 FROM workflows WHERE id = ?`, id,
	).Scan(&wf.ID, &wf.Username, &wf.Name, &wf.DataPrep, &wf.Analysis, &wf.Visualisation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading workflow %d: %w", id, err)
	}
	return &wf, nil
}

// ListWorkflows returns workflow rows, optionally filtered by username.
func (s *Store) ListWorkflows(username string) ([]Workflow, error) {
	q := `SELECT id, username, name, data_prep, analysis, visualisation FROM workflows`
	args := []any{}
	if username != "" {
		q += ` WHERE username = ?`
		args = append(args, username)
	}
	q += ` ORDER BY id`

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing workflows: %w", err)
	}
	defer rows.Close()

	var out []Workflow
	for rows.Next() {
		var wf Workflow
		if err := rows.Scan(&wf.ID, &wf.Username, &wf.Name, &wf.DataPrep, &wf.Analysis, &wf.Visualisation); err != nil {
			return nil, fmt.Errorf("scanning workflow: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

// workflowColumns maps updatable request fields to their columns.
var workflowColumns = []string{"name", "data_prep", "analysis", "visualisation"}

// UpdateWorkflow merges the given fields into an existing row. Unknown
// fields are ignored so clients can send partial documents freely.
func (s *Store) UpdateWorkflow(id int, fields map[string]string) (*Workflow, error) {
	set := ""
	args := []any{}
	for _, column := range workflowColumns {
		v, ok := fields[column]
		if !ok {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += column + " = ?"
		args = append(args, v)
	}
	if set != "" {
		args = append(args, id)
		res, err := s.db.Exec(`UPDATE workflows SET `+set+` WHERE id = ?`, args...)
		if err != nil {
			return nil, fmt.Errorf("updating workflow %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: %d", ErrWorkflowNotFound, id)
		}
	}
	return s.GetWorkflow(id)
}

// DeleteWorkflow removes a workflow row and reports whether one existed.
func (s *Store) DeleteWorkflow(id int) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("deleting workflow %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deleting workflow %d: %w", id, err)
	}
	return n > 0, nil
}
