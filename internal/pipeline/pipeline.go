package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dementor/internal/model"
	"dementor/internal/telemetry"
)

// UnitState tracks a scan unit through the run.
type UnitState string

const (
	StatePending    UnitState = "pending"
	StateExtracting UnitState = "extracting"
	StateMatching   UnitState = "matching"
	StateDone       UnitState = "done"
	StateFailed     UnitState = "failed"
)

// ErrAlreadyRunning is returned when Run is called on a pipeline that has a
// run in progress. A pipeline executes one run at a time.
var ErrAlreadyRunning = errors.New("pipeline run already in progress")

// Extractor produces the dependency set for one scan unit root.
type Extractor interface {
	Extract(root string) *model.ScanUnitResult
}

// DependencyMatcher evaluates one dependency against the advisory source.
type DependencyMatcher interface {
	Match(ctx context.Context, dep model.Dependency) ([]model.Finding, *model.Warning, error)
}

// ResultStore persists unit results between runs, so a parse-only run can be
// resumed later with scan-only. Optional; a nil store disables persistence.
type ResultStore interface {
	SaveUnit(ctx context.Context, result model.ScanUnitResult) error
	LoadUnit(ctx context.Context, unit string) (*model.ScanUnitResult, error)
}

// Options control one pipeline run.
type Options struct {
	Workers     int           // concurrent matching workers, also the lookup bound
	UnitTimeout time.Duration // wall-clock budget for one unit's matching stage
	ParseOnly   bool          // stop after extraction
	ScanOnly    bool          // skip extraction, load dependencies from the store
}

// Pipeline drives scan units through extraction and matching and aggregates
// a RunResult. Units are processed in order; within a unit, dependencies are
// matched concurrently on the worker pool.
type Pipeline struct {
	Extractor Extractor
	Matcher   DependencyMatcher
	Store     ResultStore
	Opts      Options

	running atomic.Bool

	mu     sync.Mutex
	states map[string]UnitState
}

func New(extractor Extractor, matcher DependencyMatcher, opts Options) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	return &Pipeline{
		Extractor: extractor,
		Matcher:   matcher,
		Opts:      opts,
		states:    make(map[string]UnitState),
	}
}

// State returns the current state of a unit, StatePending if unseen.
func (p *Pipeline) State(unit string) UnitState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[unit]; ok {
		return s
	}
	return StatePending
}

func (p *Pipeline) setState(unit string, s UnitState) {
	p.mu.Lock()
	p.states[unit] = s
	p.mu.Unlock()
}

// Run processes every unit root and returns the aggregated result. A unit
// failure never aborts the run; only context cancellation stops it early,
// and then the result covers the units finished so far.
func (p *Pipeline) Run(ctx context.Context, roots []string) (*model.RunResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer p.running.Store(false)

	run := &model.RunResult{Started: time.Now().UTC()}

	pool := NewWorkerPool(p.Opts.Workers)
	pool.Start()
	defer pool.Stop()

	for _, root := range roots {
		if ctx.Err() != nil {
			slog.Warn("run cancelled", "remaining_units", len(roots)-len(run.Units))
			break
		}
		result := p.runUnit(ctx, pool, root)
		run.Units = append(run.Units, *result)
		telemetry.TrackUnitScanned(string(result.Status))
	}

	run.Finished = time.Now().UTC()
	return run, ctx.Err()
}

func (p *Pipeline) runUnit(ctx context.Context, pool *WorkerPool, root string) *model.ScanUnitResult {
	p.setState(root, StateExtracting)

	var result *model.ScanUnitResult
	if p.Opts.ScanOnly {
		result = p.loadUnit(ctx, root)
	} else {
		result = p.Extractor.Extract(root)
	}
	if result.Status == model.StatusFailed {
		p.setState(root, StateFailed)
		return result
	}

	if p.Opts.ParseOnly {
		p.saveUnit(ctx, result)
		p.setState(root, StateDone)
		slog.Info("unit extracted", "unit", result.Unit, "dependencies", len(result.Dependencies), "status", result.Status)
		return result
	}

	p.setState(root, StateMatching)
	p.matchUnit(ctx, pool, result)
	p.saveUnit(ctx, result)
	p.setState(root, StateDone)

	slog.Info("unit scanned",
		"unit", result.Unit,
		"dependencies", len(result.Dependencies),
		"findings", len(result.Findings),
		"status", result.Status)
	return result
}

// matchUnit fans the unit's dependencies out to the pool and folds the
// outcomes back in on this goroutine. Only this goroutine touches result.
func (p *Pipeline) matchUnit(ctx context.Context, pool *WorkerPool, result *model.ScanUnitResult) {
	matchCtx := ctx
	if p.Opts.UnitTimeout > 0 {
		var cancel context.CancelFunc
		matchCtx, cancel = context.WithTimeout(ctx, p.Opts.UnitTimeout)
		defer cancel()
	}

	type outcome struct {
		dep      model.Dependency
		findings []model.Finding
		warning  *model.Warning
		err      error
	}

	outcomes := make(chan outcome, len(result.Dependencies))
	submitted := 0
	for _, dep := range result.Dependencies {
		if matchCtx.Err() != nil {
			break
		}
		dep := dep
		pool.Submit(func(int) {
			findings, warning, err := p.Matcher.Match(matchCtx, dep)
			outcomes <- outcome{dep: dep, findings: findings, warning: warning, err: err}
		})
		submitted++
	}
	if skipped := len(result.Dependencies) - submitted; skipped > 0 {
		result.AddError("match", "", fmt.Sprintf("cancelled before matching %d of %d dependencies: %v",
			skipped, len(result.Dependencies), matchCtx.Err()))
	}

	for i := 0; i < submitted; i++ {
		o := <-outcomes
		if o.err != nil {
			file := ""
			if len(o.dep.SourceFiles) > 0 {
				file = o.dep.SourceFiles[0]
			}
			result.AddError("match", file, fmt.Sprintf("%s: %v", o.dep.Name, o.err))
			continue
		}
		if o.warning != nil {
			result.Warnings = append(result.Warnings, *o.warning)
		}
		result.Findings = append(result.Findings, o.findings...)
	}

	model.SortFindings(result.Findings)
}

func (p *Pipeline) loadUnit(ctx context.Context, root string) *model.ScanUnitResult {
	if p.Store == nil {
		return failedUnit(root, "scan-only requires a result store with a prior parse run")
	}
	stored, err := p.Store.LoadUnit(ctx, root)
	if err != nil {
		return failedUnit(root, fmt.Sprintf("load stored dependencies: %v", err))
	}
	// Matching starts fresh; stored findings from an earlier run are stale.
	stored.Findings = nil
	stored.Status = model.StatusOK
	if len(stored.Errors) > 0 {
		stored.Status = model.StatusPartial
	}
	return stored
}

func (p *Pipeline) saveUnit(ctx context.Context, result *model.ScanUnitResult) {
	if p.Store == nil {
		return
	}
	if err := p.Store.SaveUnit(ctx, *result); err != nil {
		slog.Error("failed to persist unit result", "unit", result.Unit, "error", err)
	}
}

func failedUnit(root, msg string) *model.ScanUnitResult {
	return &model.ScanUnitResult{
		Unit:   root,
		Status: model.StatusFailed,
		Errors: []model.UnitError{{Stage: "setup", Message: msg}},
	}
}
