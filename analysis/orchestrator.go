package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
	"github.com/google/uuid"

	"github.com/flanksource/quality-unit/internal/cache"
	"github.com/flanksource/quality-unit/internal/files"
	"github.com/flanksource/quality-unit/models"
)

// Phase names reported to the progress tracker, in order
const (
	PhaseDiscovering = "Discovering files"
	PhaseParsing     = "Parsing files"
	PhaseAnalyzing   = "Running analysis"
	PhaseMetrics     = "Calculating metrics"
)

// Config wires an orchestrator's collaborators. Nil fields get working
// defaults: an empty registry, a glob-based discovery and in-memory
// caches with a 24h TTL.
type Config struct {
	Parser    ParserAdapter
	Discovery FileDiscovery
	Registry  *Registry
	FileCache *cache.Store
	RunCache  *cache.RunCache
}

// Orchestrator composes discovery, caching, parsing and analysis into
// one incremental run. It owns its registry and caches explicitly; there
// is no process-global state.
type Orchestrator struct {
	parser    ParserAdapter
	discovery FileDiscovery
	registry  *Registry
	fileCache *cache.Store
	runCache  *cache.RunCache

	mu       sync.RWMutex
	trackers map[string]*Tracker
}

// New creates an orchestrator from a config, filling defaults
func New(cfg Config) *Orchestrator {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Discovery == nil {
		cfg.Discovery = &files.Discovery{}
	}
	if cfg.FileCache == nil {
		cfg.FileCache = cache.NewStore(24 * time.Hour)
	}
	if cfg.RunCache == nil {
		cfg.RunCache = cache.NewRunCache(24 * time.Hour)
	}

	return &Orchestrator{
		parser:    cfg.Parser,
		discovery: cfg.Discovery,
		registry:  cfg.Registry,
		fileCache: cfg.FileCache,
		runCache:  cfg.RunCache,
		trackers:  make(map[string]*Tracker),
	}
}

// Registry returns the analyzer registry owned by this orchestrator
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// GetStatus returns the progress snapshot for an analysis ID. Terminal
// runs remain queryable until the orchestrator is discarded.
func (o *Orchestrator) GetStatus(analysisID string) (ProgressState, bool) {
	o.mu.RLock()
	tracker, ok := o.trackers[analysisID]
	o.mu.RUnlock()
	if !ok {
		return ProgressState{}, false
	}
	return tracker.State(), true
}

// parsedEntry carries a successfully parsed changed file together with
// the fingerprint captured at parse time
type parsedEntry struct {
	parsed models.ParsedFile
	fp     cache.Fingerprint
}

// Run analyzes the codebase under root. Recovered per-file and per-unit
// failures accumulate in the result's ledger; only discovery failures,
// a fully unparseable file set and cancellation are fatal.
func (o *Orchestrator) Run(ctx context.Context, root string, opts models.AnalysisOptions, subscribers ...Subscriber) (*models.AnalysisRunResult, error) {
	opts.Normalize()
	started := time.Now()
	ttl := time.Duration(opts.CacheTTLHours * float64(time.Hour))
	o.fileCache.SetTTL(ttl)
	o.runCache.SetTTL(ttl)

	analysisID := uuid.NewString()
	tracker := NewTracker(analysisID)
	for _, sub := range subscribers {
		tracker.Subscribe(sub)
	}
	o.mu.Lock()
	o.trackers[analysisID] = tracker
	o.mu.Unlock()

	// Whole-run bypass: on a fresh run-cache hit nothing else executes
	// and the only progress event is the completed transition
	runKey := cache.RunKey(root, opts)
	if opts.UseCache {
		if cached, ok := o.runCache.Get(runKey); ok {
			logger.Infof("returning cached analysis result for %s", root)
			cached.FromCache = true
			tracker.Complete()
			return &cached, nil
		}
	}

	tracker.Start()
	result, err := o.run(ctx, root, opts, tracker)
	if err != nil {
		tracker.Fail(err.Error())
		return nil, err
	}

	result.AnalysisID = analysisID
	result.Timestamp = started
	result.Duration = time.Since(started)

	// Run-cache write is best-effort; it must never fail the run
	o.runCache.Put(runKey, *result)

	tracker.Complete()
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, root string, opts models.AnalysisOptions, tracker *Tracker) (*models.AnalysisRunResult, error) {
	var ledger models.RunLedger

	tracker.Update(Delta{Phase: PhaseDiscovering})

	discovered, err := o.discovery.Discover(root, opts.IncludePatterns, opts.ExcludePatterns)
	if err != nil {
		return nil, &ResourceError{Resource: root, Err: err}
	}
	logger.Infof("discovered %d files under %s", len(discovered), root)

	tracker.Update(Delta{Phase: PhaseParsing, TotalFiles: len(discovered)})

	// Incremental split: files whose fingerprint still matches a fresh
	// cache entry skip the parser and analyzers entirely
	var changed, unchanged []string
	if opts.Incremental {
		changed, unchanged = o.fileCache.Diff(discovered)
		logger.Infof("incremental analysis: %d changed, %d unchanged", len(changed), len(unchanged))
	} else {
		changed = discovered
	}

	// Unchanged files contribute their cached parse and issues verbatim.
	// A record that fails validation demotes the file to changed.
	var cachedParsed []models.ParsedFile
	var cachedIssues []models.Issue
	for _, path := range unchanged {
		rec, ok := o.fileCache.Get(path)
		if !ok {
			cerr := &CacheError{Key: path, Err: fmt.Errorf("record no longer valid, reprocessing")}
			ledger.CacheErrors = append(ledger.CacheErrors, models.RunError{
				Kind:     "cache",
				FilePath: path,
				Message:  cerr.Error(),
			})
			changed = append(changed, path)
			continue
		}
		cachedParsed = append(cachedParsed, rec.Parsed)
		cachedIssues = append(cachedIssues, rec.Issues...)
		tracker.Update(Delta{FilesProcessed: 1})
	}

	freshEntries, parseErrors := o.parseFiles(ctx, changed, opts, tracker)
	for _, perr := range parseErrors {
		ledger.ParsingErrors = append(ledger.ParsingErrors, models.RunError{
			Kind:     "parsing",
			FilePath: perr.FilePath,
			Message:  perr.Error(),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	if len(freshEntries)+len(cachedParsed) == 0 {
		return nil, &AnalysisError{Err: fmt.Errorf("no files could be parsed (%d of %d failed)", len(parseErrors), len(changed))}
	}

	// Plan only over freshly parsed files; unchanged files never
	// re-enter an analyzer
	freshParsed := make([]models.ParsedFile, 0, len(freshEntries))
	for _, entry := range freshEntries {
		freshParsed = append(freshParsed, entry.parsed)
	}
	plan := o.registry.Plan(freshParsed, opts.CategoryFilter, opts.LanguageFilter)

	tracker.Update(Delta{Phase: PhaseAnalyzing, TotalAnalyzers: len(plan)})

	freshIssues, analysisErrors := o.runAnalyzers(ctx, plan, root, opts, tracker)
	for _, aerr := range analysisErrors {
		ledger.AnalysisErrors = append(ledger.AnalysisErrors, models.RunError{
			Kind:    "analysis",
			Unit:    aerr.Unit,
			Message: aerr.Error(),
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	tracker.Update(Delta{Phase: PhaseMetrics})

	// Merge cached and fresh issues, restricted to files still present
	// in this run's discovered set: a deleted file's cached issues are
	// dropped here even though its record may linger until TTL expiry
	live := make(map[string]bool, len(cachedParsed)+len(freshParsed))
	for _, f := range cachedParsed {
		live[f.Path] = true
	}
	for _, f := range freshParsed {
		live[f.Path] = true
	}

	merged := make([]models.Issue, 0, len(cachedIssues))
	for _, issue := range append(cachedIssues, freshIssues...) {
		if !live[issue.Location.FilePath] {
			continue
		}
		if issue.Confidence < opts.ConfidenceThreshold {
			continue
		}
		merged = append(merged, issue)
	}

	// Cache every freshly processed file, including those with zero
	// issues: the absence of findings is itself a cacheable result
	byFile := make(map[string][]models.Issue)
	for _, issue := range freshIssues {
		byFile[issue.Location.FilePath] = append(byFile[issue.Location.FilePath], issue)
	}
	for _, entry := range freshEntries {
		o.fileCache.Put(entry.fp, entry.parsed, byFile[entry.parsed.Path])
	}

	allParsed := append(append([]models.ParsedFile{}, cachedParsed...), freshParsed...)
	metrics := computeMetrics(merged, allParsed)

	logger.Infof("analysis found %d issues across %d files (%d recovered failures)", len(merged), len(allParsed), ledger.Count())

	return &models.AnalysisRunResult{
		CodebasePath: root,
		ParsedFiles:  allParsed,
		Issues:       merged,
		Metrics:      metrics,
		Options:      opts,
		Ledger:       ledger,
	}, nil
}

// parseFiles parses changed files, bounded by the parse pool. With
// parallelism off or a single file, files parse sequentially in
// discovery order so test runs are deterministic. Output order follows
// the input order in both modes.
func (o *Orchestrator) parseFiles(ctx context.Context, changed []string, opts models.AnalysisOptions, tracker *Tracker) ([]parsedEntry, []*ParsingError) {
	outcomes := make([]*parsedEntry, len(changed))
	failures := make([]*ParsingError, len(changed))

	parseOne := func(i int, path string) {
		fp, err := cache.ComputeFingerprint(path)
		if err != nil {
			// The file vanished or became unreadable after discovery;
			// its stale cache entry must not serve future runs
			o.fileCache.Remove(path)
			failures[i] = &ParsingError{FilePath: path, Err: err}
			tracker.Update(Delta{FilesProcessed: 1})
			return
		}

		parsed, err := o.parser.Parse(path)
		if err != nil {
			failures[i] = &ParsingError{FilePath: path, Err: err}
			tracker.Update(Delta{FilesProcessed: 1})
			return
		}
		parsed.Path = fp.Path

		outcomes[i] = &parsedEntry{parsed: parsed, fp: fp}
		tracker.Update(Delta{FilesProcessed: 1})
	}

	if !opts.ParallelProcessing || len(changed) <= 1 {
		for i, path := range changed {
			if ctx.Err() != nil {
				break
			}
			parseOne(i, path)
		}
	} else {
		tasks := make([]func(), len(changed))
		for i, path := range changed {
			tasks[i] = func() { parseOne(i, path) }
		}
		runPool(ctx, opts.MaxWorkers, tasks)
	}

	var entries []parsedEntry
	var errs []*ParsingError
	for i := range changed {
		if outcomes[i] != nil {
			entries = append(entries, *outcomes[i])
		}
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}
	return entries, errs
}

// runAnalyzers executes the plan on the analyze pool. Each task is one
// (unit, fileSubset) pair, so a unit never runs concurrently with itself
// within a run. Issue collection and progress updates serialize through
// a single mutex.
func (o *Orchestrator) runAnalyzers(ctx context.Context, plan []PlanTask, root string, opts models.AnalysisOptions, tracker *Tracker) ([]models.Issue, []*AnalysisError) {
	actx := &Context{Root: root, Options: opts}

	var mu sync.Mutex
	var collected []models.Issue
	var failures []*AnalysisError

	analyzeOne := func(task PlanTask) {
		issues, err := task.Unit.Analyze(task.Files, actx)

		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			logger.Warnf("analyzer %s failed: %v", task.Unit.Name(), err)
			failures = append(failures, &AnalysisError{Unit: task.Unit.Name(), Err: err})
		} else {
			threshold := task.Unit.ConfidenceThreshold()
			for _, issue := range issues {
				if issue.Confidence >= threshold {
					collected = append(collected, issue)
				}
			}
			logger.Debugf("analyzer %s emitted %d issues over %d files", task.Unit.Name(), len(issues), len(task.Files))
		}

		tracker.Update(Delta{AnalyzersCompleted: 1})
	}

	if !opts.ParallelProcessing || len(plan) <= 1 {
		for _, task := range plan {
			if ctx.Err() != nil {
				break
			}
			analyzeOne(task)
		}
	} else {
		tasks := make([]func(), len(plan))
		for i, task := range plan {
			tasks[i] = func() { analyzeOne(task) }
		}
		runPool(ctx, opts.MaxWorkers, tasks)
	}

	return collected, failures
}

// ClearCache empties both the per-file and whole-run caches
func (o *Orchestrator) ClearCache() {
	o.fileCache.Clear()
	o.runCache.Clear()
	logger.Infof("analysis caches cleared")
}

// CleanupExpired sweeps expired entries from both caches and returns the
// total count removed
func (o *Orchestrator) CleanupExpired(ttl time.Duration) int {
	removed := o.fileCache.Expire(ttl) + o.runCache.Expire(ttl)
	if removed > 0 {
		logger.Infof("cleaned up %d expired cache entries", removed)
	}
	return removed
}

// CacheStats reports entry counts and hit/miss counters for both caches
func (o *Orchestrator) CacheStats() cache.Stats {
	return cache.CollectStats(o.fileCache, o.runCache)
}

// Close releases cache resources
func (o *Orchestrator) Close() error {
	return o.fileCache.Close()
}
