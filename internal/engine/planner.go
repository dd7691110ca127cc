// Package engine resolves saved-query dependencies and plans execution
// against the external endpoint. It builds the execution environment from
// live sources, expands referenced saved queries one level deep, and hands
// the target script plus the full environment to the endpoint.
package engine

import (
	"context"
	"log/slog"

	"github.com/zaidkom/net-zero/internal/executor"
	"github.com/zaidkom/net-zero/internal/query"
	"github.com/zaidkom/net-zero/internal/table"
)

// Executor runs a script against a set of named tables.
type Executor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.Result, error)
}

// Planner orchestrates reference resolution and execution.
type Planner struct {
	exec   Executor
	logger *slog.Logger
}

// NewPlanner creates a planner backed by the given executor.
func NewPlanner(exec Executor, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Planner{exec: exec, logger: logger}
}

// BuildEnvironment assembles the execution environment for a script: every
// live source under its table name, plus the materialized output of each
// saved query the script references. References are expanded one level only;
// a referenced query's own body is never re-scanned for further references.
// A reference whose name is already bound (a source shadowing a query) is
// skipped. A reference that fails to execute resolves to an empty table so
// one bad query cannot sink the whole run.
func (p *Planner) BuildEnvironment(ctx context.Context, sources *table.Set, reg *query.Registry, script string) map[string][]table.Row {
	env := sources.Environment()

	for _, ref := range reg.References(script) {
		if _, bound := env[ref.Name]; bound {
			continue
		}

		res, err := p.exec.Execute(ctx, executor.Request{
			Query:    ref.Query,
			Language: string(ref.Type),
			Tables:   env,
		})
		if err != nil {
			p.logger.Warn("reference resolution failed",
				"query", ref.Name,
				"error", err,
			)
			env[ref.Name] = nil
			continue
		}
		if res.Failed() {
			p.logger.Warn("referenced query returned an error",
				"query", ref.Name,
				"error", res.Error,
			)
			env[ref.Name] = nil
			continue
		}
		env[ref.Name] = res.Rows(ref.Name)
	}
	return env
}

// RunQuery resolves references and executes a data-prep query. Transport
// failures are normalized into an error result; RunQuery never returns a Go
// error for anything the endpoint or the network did.
func (p *Planner) RunQuery(ctx context.Context, sources *table.Set, reg *query.Registry, body string, typ query.Type) *executor.Result {
	env := p.BuildEnvironment(ctx, sources, reg, body)

	res, err := p.exec.Execute(ctx, executor.Request{
		Query:    body,
		Language: string(typ),
		Tables:   env,
	})
	if err != nil {
		p.logger.Error("query execution failed", "error", err)
		return &executor.Result{Error: err.Error()}
	}
	return res
}

// RunScript resolves references and executes an analysis script.
func (p *Planner) RunScript(ctx context.Context, sources *table.Set, reg *query.Registry, s query.Script) *executor.Result {
	env := p.BuildEnvironment(ctx, sources, reg, s.Code)

	res, err := p.exec.Execute(ctx, executor.Request{
		Script:     s.Code,
		ScriptType: string(s.Type),
		Tables:     env,
	})
	if err != nil {
		p.logger.Error("script execution failed",
			"script", s.Name,
			"error", err,
		)
		return &executor.Result{Error: err.Error()}
	}
	return res
}

// ScriptOutcome is the result of one script in a batch run.
type ScriptOutcome struct {
	Name  string
	Error string
}

// Passed reports whether the script executed without an error.
func (o ScriptOutcome) Passed() bool { return o.Error == "" }

// TestAll executes every script independently and reports per-script
// outcomes in list order. A failing script never halts the batch.
func (p *Planner) TestAll(ctx context.Context, sources *table.Set, reg *query.Registry, scripts []query.Script) []ScriptOutcome {
	outcomes := make([]ScriptOutcome, 0, len(scripts))
	for _, s := range scripts {
		res := p.RunScript(ctx, sources, reg, s)
		outcome := ScriptOutcome{Name: s.Name}
		if res.Failed() {
			outcome.Error = res.Error
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}
