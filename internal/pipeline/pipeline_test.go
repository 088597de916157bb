package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dementor/internal/model"
)

type fakeExtractor struct {
	results map[string]*model.ScanUnitResult
}

func (f *fakeExtractor) Extract(root string) *model.ScanUnitResult {
	if r, ok := f.results[root]; ok {
		clone := *r
		return &clone
	}
	return &model.ScanUnitResult{
		Unit:   root,
		Status: model.StatusFailed,
		Errors: []model.UnitError{{Stage: "setup", Message: "no such root"}},
	}
}

type fakeMatcher struct {
	delay      time.Duration
	failFor    string
	inFlight   atomic.Int32
	maxSeen    atomic.Int32
	vulnerable map[string]string // package name -> advisory ID
}

func (f *fakeMatcher) Match(ctx context.Context, dep model.Dependency) ([]model.Finding, *model.Warning, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if dep.Name == f.failFor {
		return nil, nil, fmt.Errorf("lookup %s: %w", dep.Name, errors.New("advisory source down"))
	}
	if dep.Unresolved() {
		return nil, &model.Warning{Message: dep.Name + ": no resolvable version"}, nil
	}
	if id, ok := f.vulnerable[dep.Name]; ok {
		return []model.Finding{{
			Dependency: dep,
			Advisory:   model.Advisory{ID: id},
			Severity:   model.SeverityHigh,
		}}, nil, nil
	}
	return nil, nil, nil
}

type memStore struct {
	mu    sync.Mutex
	units map[string]model.ScanUnitResult
}

func newMemStore() *memStore {
	return &memStore{units: make(map[string]model.ScanUnitResult)}
}

func (s *memStore) SaveUnit(_ context.Context, result model.ScanUnitResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units[result.Unit] = result
	return nil
}

func (s *memStore) LoadUnit(_ context.Context, unit string) (*model.ScanUnitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.units[unit]; ok {
		clone := r
		return &clone, nil
	}
	return nil, fmt.Errorf("no stored result for unit %s", unit)
}

func deps(names ...string) []model.Dependency {
	out := make([]model.Dependency, 0, len(names))
	for _, n := range names {
		out = append(out, model.Dependency{
			Name:            n,
			Ecosystem:       model.EcosystemNpm,
			ResolvedVersion: "1.0.0",
		})
	}
	return out
}

func TestRunMatchesAndAggregates(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: deps("left-pad", "lodash", "express")},
	}}
	m := &fakeMatcher{vulnerable: map[string]string{"lodash": "GHSA-x"}}
	p := New(ex, m, Options{Workers: 2})

	run, err := p.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	require.Len(t, run.Units, 1)

	unit := run.Units[0]
	assert.Equal(t, model.StatusOK, unit.Status)
	require.Len(t, unit.Findings, 1)
	assert.Equal(t, "GHSA-x", unit.Findings[0].Advisory.ID)
	assert.Equal(t, 1, run.TotalFindings())
	assert.False(t, run.Failed())
	assert.Equal(t, StateDone, p.State("app"))
}

func TestRunLookupFailureDegradesUnitOnly(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: deps("left-pad", "broken", "lodash")},
		"lib": {Unit: "lib", Status: model.StatusOK, Dependencies: deps("requests")},
	}}
	m := &fakeMatcher{failFor: "broken", vulnerable: map[string]string{"lodash": "GHSA-x"}}
	p := New(ex, m, Options{Workers: 2})

	run, err := p.Run(context.Background(), []string{"app", "lib"})
	require.NoError(t, err)
	require.Len(t, run.Units, 2)

	app := run.Units[0]
	assert.Equal(t, model.StatusPartial, app.Status)
	require.Len(t, app.Errors, 1)
	assert.Equal(t, "match", app.Errors[0].Stage)
	assert.Len(t, app.Findings, 1, "other dependencies in the unit are still matched")

	assert.Equal(t, model.StatusOK, run.Units[1].Status)
	assert.False(t, run.Failed())
}

func TestRunFailedExtractionSkipsMatching(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{}}
	m := &fakeMatcher{}
	p := New(ex, m, Options{Workers: 1})

	run, err := p.Run(context.Background(), []string{"missing"})
	require.NoError(t, err)
	require.Len(t, run.Units, 1)
	assert.Equal(t, model.StatusFailed, run.Units[0].Status)
	assert.True(t, run.Failed())
	assert.Equal(t, StateFailed, p.State("missing"))
	assert.Equal(t, int32(0), m.maxSeen.Load(), "no lookups for a failed unit")
}

func TestRunConcurrencyStaysWithinWorkerBound(t *testing.T) {
	const workers = 3
	many := deps(
		"a", "b", "c", "d", "e", "f", "g", "h", "i", "j",
		"k", "l", "m", "n", "o", "p", "q", "r", "s", "t",
	)
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: many},
	}}
	m := &fakeMatcher{delay: 10 * time.Millisecond}
	p := New(ex, m, Options{Workers: workers})

	_, err := p.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	assert.LessOrEqual(t, m.maxSeen.Load(), int32(workers))
	assert.Greater(t, m.maxSeen.Load(), int32(1), "matching should actually run concurrently")
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: deps("a", "b")},
	}}
	m := &fakeMatcher{delay: 50 * time.Millisecond}
	p := New(ex, m, Options{Workers: 1})

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		_, _ = p.Run(context.Background(), []string{"app"})
		close(done)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	_, err := p.Run(context.Background(), []string{"app"})
	assert.ErrorIs(t, err, ErrAlreadyRunning)
	<-done

	// The pipeline is reusable once the first run finishes.
	_, err = p.Run(context.Background(), []string{"app"})
	assert.NoError(t, err)
}

func TestRunParseOnlyThenScanOnly(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: deps("lodash")},
	}}
	store := newMemStore()

	parse := New(ex, &fakeMatcher{}, Options{Workers: 1, ParseOnly: true})
	parse.Store = store
	run, err := parse.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	assert.Empty(t, run.Units[0].Findings)

	// Second phase matches from the stored dependency set without extracting.
	scan := New(&fakeExtractor{}, &fakeMatcher{vulnerable: map[string]string{"lodash": "GHSA-x"}}, Options{Workers: 1, ScanOnly: true})
	scan.Store = store
	run, err = scan.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	require.Len(t, run.Units, 1)
	assert.Equal(t, model.StatusOK, run.Units[0].Status)
	assert.Len(t, run.Units[0].Findings, 1)
}

func TestRunScanOnlyWithoutStoreFails(t *testing.T) {
	p := New(&fakeExtractor{}, &fakeMatcher{}, Options{Workers: 1, ScanOnly: true})

	run, err := p.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	require.Len(t, run.Units, 1)
	assert.Equal(t, model.StatusFailed, run.Units[0].Status)
}

func TestRunCancellationStopsBetweenUnits(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"one": {Unit: "one", Status: model.StatusOK, Dependencies: deps("a")},
		"two": {Unit: "two", Status: model.StatusOK, Dependencies: deps("b")},
	}}
	m := &fakeMatcher{delay: 20 * time.Millisecond}
	p := New(ex, m, Options{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	run, err := p.Run(ctx, []string{"one", "two"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, len(run.Units), 2)
	assert.False(t, run.Finished.IsZero())
}

func TestMatchUnitCancelledContextStopsDispatch(t *testing.T) {
	m := &fakeMatcher{}
	p := New(&fakeExtractor{}, m, Options{Workers: 2})
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := &model.ScanUnitResult{Unit: "app", Status: model.StatusOK, Dependencies: deps("a", "b", "c")}
	p.matchUnit(ctx, pool, result)

	assert.Equal(t, int32(0), m.maxSeen.Load(), "no lookups dispatched after cancellation")
	require.Len(t, result.Errors, 1, "one summary error, not one per dependency")
	assert.Contains(t, result.Errors[0].Message, "3 of 3")
	assert.Empty(t, result.Findings)
}

func TestRunUnitTimeoutDegrades(t *testing.T) {
	ex := &fakeExtractor{results: map[string]*model.ScanUnitResult{
		"app": {Unit: "app", Status: model.StatusOK, Dependencies: deps("slow")},
	}}
	m := &fakeMatcher{delay: 200 * time.Millisecond}
	p := New(ex, m, Options{Workers: 1, UnitTimeout: 20 * time.Millisecond})

	run, err := p.Run(context.Background(), []string{"app"})
	require.NoError(t, err)
	require.Len(t, run.Units, 1)
	assert.Equal(t, model.StatusPartial, run.Units[0].Status)
	require.NotEmpty(t, run.Units[0].Errors)
	assert.Equal(t, "match", run.Units[0].Errors[0].Stage)
}
