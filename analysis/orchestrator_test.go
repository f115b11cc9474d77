package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/quality-unit/internal/cache"
	"github.com/flanksource/quality-unit/internal/files"
	"github.com/flanksource/quality-unit/models"
)

func testOptions() models.AnalysisOptions {
	opts := models.DefaultOptions()
	opts.UseCache = false
	opts.Incremental = true
	opts.ParallelProcessing = false
	return opts
}

func writeSource(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestOrchestrator(parser ParserAdapter, units ...AnalyzerUnit) *Orchestrator {
	registry := NewRegistry()
	for _, unit := range units {
		registry.Register(unit, PriorityMedium)
	}
	return New(Config{
		Parser:    parser,
		Discovery: &files.Discovery{},
		Registry:  registry,
		FileCache: cache.NewStore(time.Hour),
		RunCache:  cache.NewRunCache(time.Hour),
	})
}

func issueFiles(result *models.AnalysisRunResult) []string {
	var paths []string
	for _, issue := range result.Issues {
		paths = append(paths, issue.Location.FilePath)
	}
	sort.Strings(paths)
	return paths
}

// The canonical incremental scenario: 3 files, 1 unit emitting one issue
// per file, across four runs with a modification and a deletion.
func TestOrchestrator_IncrementalScenario(t *testing.T) {
	root := t.TempDir()
	f1 := writeSource(t, root, "one.go", "package one\n")
	f2 := writeSource(t, root, "two.go", "package two\n")
	f3 := writeSource(t, root, "three.go", "package three\n")

	parser := &mockParser{}
	unit := newMockUnit("mock")
	orch := newTestOrchestrator(parser, unit)
	opts := testOptions()

	// Run 1: cold cache, everything processed
	result, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(3), parser.calls.Load(), "run 1 parses all files")
	assert.Equal(t, int64(1), unit.calls.Load(), "one (unit, subset) task")
	assert.Equal(t, int64(3), unit.filesSeen.Load(), "run 1 analyzes all files")
	assert.Len(t, result.Issues, 3)
	firstIssues := issueFiles(result)

	// Run 2: identical inputs, zero parse/analyze invocations
	result, err = orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(3), parser.calls.Load(), "run 2 must not parse")
	assert.Equal(t, int64(3), unit.filesSeen.Load(), "run 2 must not analyze")
	assert.Len(t, result.Issues, 3)
	assert.Equal(t, firstIssues, issueFiles(result), "issue set identical to run 1")

	// Run 3: modify file #2 — exactly that file is reprocessed
	require.NoError(t, os.WriteFile(f2, []byte("package two // modified\n"), 0644))
	result, err = orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(4), parser.calls.Load(), "run 3 parses only the modified file")
	assert.Equal(t, int64(4), unit.filesSeen.Load(), "run 3 analyzes only the modified file")
	assert.Len(t, result.Issues, 3, "cached issues for untouched files are merged back")

	// Run 4: delete file #2 — its cached issues disappear from the result
	require.NoError(t, os.Remove(f2))
	result, err = orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(4), parser.calls.Load(), "run 4 parses nothing")
	assert.Equal(t, int64(4), unit.filesSeen.Load(), "run 4 analyzes nothing")
	assert.Len(t, result.Issues, 2)
	for _, issue := range result.Issues {
		assert.NotEqual(t, f2, issue.Location.FilePath, "deleted file's issues must be dropped")
	}
	assert.ElementsMatch(t, []string{f1, f3}, issueFiles(result))
}

func TestOrchestrator_RunCacheBypass(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "one.go", "package one\n")

	parser := &mockParser{}
	unit := newMockUnit("mock")
	orch := newTestOrchestrator(parser, unit)

	opts := testOptions()
	opts.UseCache = true

	first, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	require.False(t, first.FromCache)
	parsesAfterFirst := parser.calls.Load()

	second, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, parsesAfterFirst, parser.calls.Load(), "bypass must do no work")
	assert.Equal(t, len(first.Issues), len(second.Issues))

	// Different options miss the run cache
	other := opts
	other.MaxWorkers = 8
	third, err := orch.Run(context.Background(), root, other)
	require.NoError(t, err)
	assert.False(t, third.FromCache)
}

func TestOrchestrator_DiscoveryFailureIsFatal(t *testing.T) {
	orch := New(Config{
		Parser:    &mockParser{},
		Discovery: failingDiscovery{},
		Registry:  NewRegistry(),
	})

	_, err := orch.Run(context.Background(), "/some/root", testOptions())
	require.Error(t, err)

	var resErr *ResourceError
	assert.True(t, errors.As(err, &resErr), "expected ResourceError, got %T", err)
}

func TestOrchestrator_ParseFailureRecoverable(t *testing.T) {
	root := t.TempDir()
	good := writeSource(t, root, "good.go", "package good\n")
	bad := writeSource(t, root, "bad.go", "package bad\n")

	parser := &mockParser{fail: map[string]bool{bad: true}}
	unit := newMockUnit("mock")
	orch := newTestOrchestrator(parser, unit)

	result, err := orch.Run(context.Background(), root, testOptions())
	require.NoError(t, err, "one bad file must not fail the run")

	require.Len(t, result.Ledger.ParsingErrors, 1)
	assert.Equal(t, bad, result.Ledger.ParsingErrors[0].FilePath)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, good, result.Issues[0].Location.FilePath)
}

func TestOrchestrator_AllFilesFailIsFatal(t *testing.T) {
	root := t.TempDir()
	a := writeSource(t, root, "a.go", "package a\n")
	b := writeSource(t, root, "b.go", "package b\n")

	parser := &mockParser{fail: map[string]bool{a: true, b: true}}
	orch := newTestOrchestrator(parser, newMockUnit("mock"))

	_, err := orch.Run(context.Background(), root, testOptions())
	require.Error(t, err)

	var anErr *AnalysisError
	assert.True(t, errors.As(err, &anErr), "expected AnalysisError, got %T", err)
}

func TestOrchestrator_UnitFailureRecoverable(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	healthy := newMockUnit("healthy")
	broken := newMockUnit("broken")
	broken.failErr = fmt.Errorf("synthetic analyzer crash")

	orch := newTestOrchestrator(&mockParser{}, healthy, broken)

	result, err := orch.Run(context.Background(), root, testOptions())
	require.NoError(t, err, "a failing unit must not fail the run")

	require.Len(t, result.Ledger.AnalysisErrors, 1)
	assert.Equal(t, "broken", result.Ledger.AnalysisErrors[0].Unit)
	assert.Len(t, result.Issues, 1, "healthy unit's issues survive")
}

func TestOrchestrator_ConfidenceFiltering(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	confident := newMockUnit("confident")
	confident.confidence = 0.9
	confident.threshold = 0.5

	hesitant := newMockUnit("hesitant")
	hesitant.confidence = 0.3
	hesitant.threshold = 0.5

	orch := newTestOrchestrator(&mockParser{}, confident, hesitant)

	opts := testOptions()
	opts.ConfidenceThreshold = 0
	result, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)

	require.Len(t, result.Issues, 1, "sub-threshold issues never reach the merged set")
	assert.Contains(t, result.Issues[0].Title, "confident")
}

// The merged issue set must be identical regardless of the order units
// execute in, sequentially or concurrently.
func TestOrchestrator_OrderInvariance(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")
	writeSource(t, root, "b.go", "package b\n")

	collect := func(priorities [2]Priority, parallel bool) []string {
		registry := NewRegistry()
		registry.Register(newMockUnit("alpha"), priorities[0])
		registry.Register(newMockUnit("beta"), priorities[1])
		orch := New(Config{
			Parser:    &mockParser{},
			Discovery: &files.Discovery{},
			Registry:  registry,
			FileCache: cache.NewStore(time.Hour),
			RunCache:  cache.NewRunCache(time.Hour),
		})

		opts := testOptions()
		opts.ParallelProcessing = parallel
		opts.MaxWorkers = 4
		result, err := orch.Run(context.Background(), root, opts)
		require.NoError(t, err)

		ids := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			ids = append(ids, issue.ID)
		}
		sort.Strings(ids)
		return ids
	}

	baseline := collect([2]Priority{PriorityCritical, PriorityLow}, false)
	reversed := collect([2]Priority{PriorityLow, PriorityCritical}, false)
	concurrent := collect([2]Priority{PriorityMedium, PriorityMedium}, true)

	assert.Equal(t, baseline, reversed, "priority order must not change the merged set")
	assert.Equal(t, baseline, concurrent, "parallel execution must not change the merged set")
}

func TestOrchestrator_ZeroIssueFilesAreCached(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "clean.go", "package clean\n")

	parser := &mockParser{}
	silent := newMockUnit("silent")
	silent.confidence = 0 // everything filtered out by its own threshold
	orch := newTestOrchestrator(parser, silent)
	opts := testOptions()

	result, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Empty(t, result.Issues)

	// The absence of issues was cached: the second run reprocesses nothing
	_, err = orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, int64(1), parser.calls.Load(), "zero-issue file must still hit the cache")
}

func TestOrchestrator_ProgressLifecycle(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	orch := newTestOrchestrator(&mockParser{}, newMockUnit("mock"))

	var phases []string
	var percentages []float64
	result, err := orch.Run(context.Background(), root, testOptions(), func(state ProgressState) {
		phases = append(phases, state.Phase)
		percentages = append(percentages, state.Percentage())
	})
	require.NoError(t, err)

	assert.Contains(t, phases, PhaseDiscovering)
	assert.Contains(t, phases, PhaseParsing)
	assert.Contains(t, phases, PhaseAnalyzing)
	assert.Contains(t, phases, PhaseMetrics)
	assert.Equal(t, "Completed", phases[len(phases)-1])

	last := -1.0
	for _, pct := range percentages {
		assert.GreaterOrEqual(t, pct, last, "percentage must never decrease")
		assert.LessOrEqual(t, pct, 100.0)
		last = pct
	}

	state, ok := orch.GetStatus(result.AnalysisID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, state.Status)
}

func TestOrchestrator_GetStatusUnknownID(t *testing.T) {
	orch := newTestOrchestrator(&mockParser{})
	_, ok := orch.GetStatus("no-such-id")
	assert.False(t, ok)
}

func TestOrchestrator_Cancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		writeSource(t, root, fmt.Sprintf("f%d.go", i), "package f\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := newTestOrchestrator(&mockParser{}, newMockUnit("mock"))
	_, err := orch.Run(ctx, root, testOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// A file that disappears after discovery must fail parsing recoverably
// and drop its stale cache entry so future runs cannot serve it.
func TestOrchestrator_VanishedFileDropsCacheEntry(t *testing.T) {
	root := t.TempDir()
	keep := writeSource(t, root, "keep.go", "package keep\n")
	gone := writeSource(t, root, "gone.go", "package gone\n")

	registry := NewRegistry()
	registry.Register(newMockUnit("mock"), PriorityMedium)
	fileCache := cache.NewStore(time.Hour)
	orch := New(Config{
		Parser:    &mockParser{},
		Discovery: staticDiscovery{paths: []string{keep, gone}},
		Registry:  registry,
		FileCache: fileCache,
		RunCache:  cache.NewRunCache(time.Hour),
	})
	opts := testOptions()

	_, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err)
	require.Equal(t, 2, fileCache.Len())

	// Discovery still reports the path but the file is gone from disk
	require.NoError(t, os.Remove(gone))
	result, err := orch.Run(context.Background(), root, opts)
	require.NoError(t, err, "a vanished file must not fail the run")

	require.Len(t, result.Ledger.ParsingErrors, 1)
	assert.Equal(t, gone, result.Ledger.ParsingErrors[0].FilePath)
	assert.Equal(t, 1, fileCache.Len(), "stale entry for the vanished file must be removed")
	if _, ok := fileCache.Get(gone); ok {
		t.Error("expected cache miss for the vanished file")
	}
}

func TestOrchestrator_CacheAdmin(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a.go", "package a\n")

	orch := newTestOrchestrator(&mockParser{}, newMockUnit("mock"))
	_, err := orch.Run(context.Background(), root, testOptions())
	require.NoError(t, err)

	stats := orch.CacheStats()
	assert.Equal(t, 1, stats.FileEntries)
	assert.Equal(t, 1, stats.RunEntries)

	orch.ClearCache()
	stats = orch.CacheStats()
	assert.Equal(t, 0, stats.FileEntries)
	assert.Equal(t, 0, stats.RunEntries)
}
