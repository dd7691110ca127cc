package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaidkom/net-zero/internal/executor"
	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/table"
)

// stubExecutor records every request and answers from a script/query keyed map.
type stubExecutor struct {
	requests []executor.Request
	results  map[string]*executor.Result
	err      error
}

func (s *stubExecutor) Execute(_ context.Context, req executor.Request) (*executor.Result, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	key := req.Query
	if key == "" {
		key = req.Script
	}
	if res, ok := s.results[key]; ok {
		return res, nil
	}
	return &executor.Result{Data: []table.Row{}}, nil
}

func newSources(t *testing.T) *table.Set {
	t.Helper()
	set := table.NewSet()
	_, err := set.Ingest([][]any{{"x"}, {1}, {2}}, "s")
	require.NoError(t, err)
	return set
}

func TestBuildEnvironmentExpandsReferencesOneLevel(t *testing.T) {
	sources := newSources(t)
	reg := query.NewRegistry()
	_, err := reg.Save("", "inner", "SELECT * FROM df1", query.TypeSQL)
	require.NoError(t, err)
	_, err = reg.Save("", "outer", "SELECT * FROM inner", query.TypeSQL)
	require.NoError(t, err)

	exec := &stubExecutor{results: map[string]*executor.Result{
		"SELECT * FROM inner": {Data: []table.Row{{"x": 1}}},
	}}
	p := NewPlanner(exec, nil)

	env := p.BuildEnvironment(context.Background(), sources, reg, "SELECT count(*) FROM outer")

	// df1 from sources, outer expanded; inner is a dependency of outer's own
	// body and must not be expanded transitively.
	assert.Contains(t, env, "df1")
	assert.Contains(t, env, "outer")
	assert.NotContains(t, env, "inner")

	require.Len(t, exec.requests, 1)
	assert.Equal(t, "SELECT * FROM inner", exec.requests[0].Query)
}

func TestBuildEnvironmentSkipsNamesAlreadyBound(t *testing.T) {
	sources := table.NewSet()
	_, err := sources.Ingest([][]any{{"x"}, {1}}, "s")
	require.NoError(t, err)
	require.NoError(t, sources.Rename("df1", "totals"))

	reg := query.NewRegistry()
	_, err = reg.Save("", "totals", "SELECT 1", query.TypeSQL)
	require.NoError(t, err)

	exec := &stubExecutor{}
	p := NewPlanner(exec, nil)

	env := p.BuildEnvironment(context.Background(), sources, reg, "SELECT * FROM totals")
	assert.Len(t, env, 1)
	assert.Empty(t, exec.requests, "a bound name must not trigger execution")
}

func TestBuildEnvironmentReferenceSeesEarlierExpansions(t *testing.T) {
	sources := newSources(t)
	reg := query.NewRegistry()
	_, err := reg.Save("", "a", "SELECT * FROM df1", query.TypeSQL)
	require.NoError(t, err)
	_, err = reg.Save("", "b", "SELECT * FROM a", query.TypeSQL)
	require.NoError(t, err)

	exec := &stubExecutor{results: map[string]*executor.Result{
		"SELECT * FROM df1": {Data: []table.Row{{"x": 1}}},
		"SELECT * FROM a":   {Data: []table.Row{{"x": 1}}},
	}}
	p := NewPlanner(exec, nil)

	p.BuildEnvironment(context.Background(), sources, reg, "SELECT * FROM a JOIN b")

	require.Len(t, exec.requests, 2)
	// b executes against an environment that already contains a.
	assert.Contains(t, exec.requests[1].Tables, "a")
}

func TestBuildEnvironmentFailedReferenceResolvesEmpty(t *testing.T) {
	sources := newSources(t)
	reg := query.NewRegistry()
	_, err := reg.Save("", "broken", "SELEC", query.TypeSQL)
	require.NoError(t, err)

	exec := &stubExecutor{results: map[string]*executor.Result{
		"SELEC": {Error: "syntax error"},
	}}
	p := NewPlanner(exec, nil)

	env := p.BuildEnvironment(context.Background(), sources, reg, "SELECT * FROM broken")
	rows, ok := env["broken"]
	require.True(t, ok)
	assert.Empty(t, rows)
}

func TestBuildEnvironmentUsesResultObject(t *testing.T) {
	sources := newSources(t)
	reg := query.NewRegistry()
	_, err := reg.Save("", "summary", "script body", query.TypePython)
	require.NoError(t, err)

	exec := &stubExecutor{results: map[string]*executor.Result{
		"script body": {Result: json.RawMessage(`{"summary":[{"n":1},{"n":2}]}`)},
	}}
	p := NewPlanner(exec, nil)

	env := p.BuildEnvironment(context.Background(), sources, reg, "SELECT * FROM summary")
	assert.Len(t, env["summary"], 2)
}

func TestRunQueryNormalizesTransportFailure(t *testing.T) {
	sources := newSources(t)
	exec := &stubExecutor{err: errors.New("connection refused")}
	p := NewPlanner(exec, nil)

	res := p.RunQuery(context.Background(), sources, query.NewRegistry(), "SELECT 1", query.TypeSQL)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "connection refused")
}

func TestRunScriptSendsScriptFields(t *testing.T) {
	sources := newSources(t)
	exec := &stubExecutor{results: map[string]*executor.Result{
		"result = {'out': df1}": {Result: json.RawMessage(`{"out":[{"x":1}]}`)},
	}}
	p := NewPlanner(exec, nil)

	res := p.RunScript(context.Background(), sources, query.NewRegistry(), query.Script{
		Name: "s",
		Type: query.TypePython,
		Code: "result = {'out': df1}",
	})
	require.False(t, res.Failed())

	require.Len(t, exec.requests, 1)
	assert.Equal(t, "result = {'out': df1}", exec.requests[0].Script)
	assert.Equal(t, "python", exec.requests[0].ScriptType)
	assert.Empty(t, exec.requests[0].Query)
}

func TestTestAllRunsEveryScriptIndependently(t *testing.T) {
	sources := newSources(t)
	exec := &stubExecutor{results: map[string]*executor.Result{
		"bad": {Error: "boom"},
	}}
	p := NewPlanner(exec, nil)

	outcomes := p.TestAll(context.Background(), sources, query.NewRegistry(), []query.Script{
		{Name: "first", Type: query.TypeSQL, Code: "good"},
		{Name: "second", Type: query.TypeSQL, Code: "bad"},
		{Name: "third", Type: query.TypeSQL, Code: "good"},
	})

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Passed())
	assert.False(t, outcomes[1].Passed())
	assert.Equal(t, "boom", outcomes[1].Error)
	assert.True(t, outcomes[2].Passed(), "a failure must not halt the batch")
}
