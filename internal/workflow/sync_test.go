package workflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/table"
)

// fakeStore is an in-memory workflow store handler for client tests.
type fakeStore struct {
	mu      sync.Mutex
	records map[int]*Record
	nextID  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int]*Record{}, nextID: 1}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		rec, ok := f.records[atoi(r.PathValue("id"))]
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("PUT /workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		rec, ok := f.records[atoi(r.PathValue("id"))]
		if !ok {
			http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
			return
		}
		var fields map[string]string
		json.NewDecoder(r.Body).Decode(&fields)
		if v, ok := fields["name"]; ok {
			rec.Name = v
		}
		if v, ok := fields["data_prep"]; ok {
			rec.DataPrep = v
		}
		if v, ok := fields["analysis"]; ok {
			rec.Analysis = v
		}
		if v, ok := fields["visualisation"]; ok {
			rec.Visualisation = v
		}
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("POST /workflows", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var body struct {
			Username string `json:"username"`
			Name     string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		rec := &Record{ID: f.nextID, Username: body.Username, Name: body.Name}
		f.records[f.nextID] = rec
		f.nextID++
		json.NewEncoder(w).Encode(rec)
	})
	mux.HandleFunc("GET /workflows", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []Record{}
		for _, rec := range f.records {
			if u := r.URL.Query().Get("username"); u == "" || rec.Username == u {
				out = append(out, *rec)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("DELETE /workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.records, atoi(r.PathValue("id")))
		w.Write([]byte(`{"ok":true}`))
	})
	return mux
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

func startStore(t *testing.T) (*fakeStore, *Client) {
	t.Helper()
	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)
	return store, NewClient(srv.URL)
}

func TestClientCRUD(t *testing.T) {
	_, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "exploration")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ID)

	require.NoError(t, client.Update(ctx, rec.ID, map[string]string{"data_prep": "{}"}))

	got, err := client.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "{}", got.DataPrep)
	assert.Equal(t, "exploration", got.Name)

	list, err := client.List(ctx, "ada")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, client.Delete(ctx, rec.ID))
	_, err = client.Get(ctx, rec.ID)
	require.Error(t, err)
}

func TestWorkspaceDirtyTracking(t *testing.T) {
	ws := NewWorkspace()
	assert.False(t, ws.Dirty(StagePrep))
	assert.False(t, ws.Dirty(StageAnalysis))

	_, err := ws.Ingest([][]any{{"x"}, {1}}, "s")
	require.NoError(t, err)
	assert.True(t, ws.Dirty(StagePrep))
	assert.False(t, ws.Dirty(StageAnalysis))

	_, err = ws.SaveScript(query.Script{Name: "s", Code: "result = {}"})
	require.NoError(t, err)
	assert.True(t, ws.Dirty(StageAnalysis))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "wf")
	require.NoError(t, err)

	ws := NewWorkspace()
	src, err := ws.Ingest([][]any{{"Name", "Age"}, {"Alice", "30"}, {"Bob", "25"}}, "People")
	require.NoError(t, err)
	_, err = ws.SaveQuery("", "adults", "SELECT * FROM df1 WHERE Age >= 18", query.TypeSQL)
	require.NoError(t, err)
	ws.SetBuffer("SELECT * FROM adults", query.TypeSQL)
	_, err = ws.SaveScript(query.Script{Name: "summary", Type: query.TypePython, Code: "result = {'summary': df1}"})
	require.NoError(t, err)

	syncer := NewSynchronizer(ws, client, rec.ID)
	require.NoError(t, syncer.Save(ctx, StagePrep))
	require.NoError(t, syncer.Save(ctx, StageAnalysis))
	assert.False(t, ws.Dirty(StagePrep))
	assert.False(t, ws.Dirty(StageAnalysis))

	stored := store.records[rec.ID]
	assert.NotEmpty(t, stored.DataPrep)
	assert.NotEmpty(t, stored.Analysis)

	// Fresh workspace loads the same state back.
	ws2 := NewWorkspace()
	sync2 := NewSynchronizer(ws2, client, rec.ID)
	require.NoError(t, sync2.Load(ctx, StagePrep))
	require.NoError(t, sync2.Load(ctx, StageAnalysis))

	assert.Equal(t, 1, ws2.Sources.Len())
	got, ok := ws2.Sources.Get(src.TableName)
	require.True(t, ok)
	assert.Equal(t, "People", got.SheetName)
	assert.Equal(t, 2, ws2.Sources.Counter())

	buffer, typ := ws2.Buffer()
	assert.Equal(t, "SELECT * FROM adults", buffer)
	assert.Equal(t, query.TypeSQL, typ)

	_, ok = ws2.Queries.ByName("adults")
	assert.True(t, ok)
	_, ok = ws2.Scripts.ByName("summary")
	assert.True(t, ok)

	st, ok := ws2.Stats.Get("df1")
	require.True(t, ok)
	assert.Equal(t, "number", st["Age"].DataType)
}

func TestLoadLegacyBareQuery(t *testing.T) {
	store, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "wf")
	require.NoError(t, err)
	store.records[rec.ID].DataPrep = "SELECT * FROM legacy"

	ws := NewWorkspace()
	syncer := NewSynchronizer(ws, client, rec.ID)
	require.NoError(t, syncer.Load(ctx, StagePrep))

	buffer, _ := ws.Buffer()
	assert.Equal(t, "SELECT * FROM legacy", buffer)
	assert.Equal(t, 0, ws.Sources.Len())
	assert.Equal(t, 1, ws.Sources.Counter())
}

type memCache struct {
	sources []*table.Source
	counter int
}

func (m *memCache) SaveSources(sources []*table.Source, counter int) error {
	m.sources, m.counter = sources, counter
	return nil
}

func (m *memCache) LoadSources() ([]*table.Source, int, error) {
	return m.sources, m.counter, nil
}

func TestLoadSeedsFromLocalCacheWhenStoreEmpty(t *testing.T) {
	_, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "wf")
	require.NoError(t, err)

	cache := &memCache{
		sources: []*table.Source{{TableName: "df3", SheetName: "cached"}},
		counter: 4,
	}
	ws := NewWorkspace()
	syncer := NewSynchronizer(ws, client, rec.ID, WithLocalCache(cache))
	require.NoError(t, syncer.Load(ctx, StagePrep))

	assert.Equal(t, 1, ws.Sources.Len())
	assert.Equal(t, 4, ws.Sources.Counter())
}

func TestSaveWritesLocalCache(t *testing.T) {
	_, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "wf")
	require.NoError(t, err)

	cache := &memCache{}
	ws := NewWorkspace()
	_, err = ws.Ingest([][]any{{"x"}, {1}}, "s")
	require.NoError(t, err)

	syncer := NewSynchronizer(ws, client, rec.ID, WithLocalCache(cache))
	require.NoError(t, syncer.Save(ctx, StagePrep))

	assert.Len(t, cache.sources, 1)
	assert.Equal(t, 2, cache.counter)
}

func TestJustSavedWindow(t *testing.T) {
	_, client := startStore(t)
	ctx := context.Background()

	rec, err := client.Create(ctx, "ada", "wf")
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ws := NewWorkspace()
	syncer := NewSynchronizer(ws, client, rec.ID, WithClock(func() time.Time { return now }))

	assert.False(t, syncer.JustSaved())
	require.NoError(t, syncer.Save(ctx, StagePrep))
	assert.True(t, syncer.JustSaved())

	now = now.Add(1900 * time.Millisecond)
	assert.True(t, syncer.JustSaved())

	now = now.Add(200 * time.Millisecond)
	assert.False(t, syncer.JustSaved())
}

func TestSaveFailureKeepsDirty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	ws := NewWorkspace()
	_, err := ws.Ingest([][]any{{"x"}, {1}}, "s")
	require.NoError(t, err)

	syncer := NewSynchronizer(ws, NewClient(srv.URL), 1)
	require.Error(t, syncer.Save(context.Background(), StagePrep))
	assert.True(t, ws.Dirty(StagePrep))
	assert.False(t, syncer.JustSaved())
}
