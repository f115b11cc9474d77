package analysis

import (
	"sync"
	"time"

	"github.com/flanksource/commons/logger"
)

// Status is the lifecycle state of one analysis run. Transitions are
// one-directional: pending → running → {completed, failed}; terminal
// states never transition further.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether a status accepts no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ProgressState is a point-in-time snapshot of a run's progress
type ProgressState struct {
	AnalysisID         string    `json:"analysis_id"`
	Status             Status    `json:"status"`
	Phase              string    `json:"phase"`
	FilesProcessed     int       `json:"files_processed"`
	TotalFiles         int       `json:"total_files"`
	AnalyzersCompleted int       `json:"analyzers_completed"`
	TotalAnalyzers     int       `json:"total_analyzers"`
	StartTime          time.Time `json:"start_time"`
	ErrorMessage       string    `json:"error_message,omitempty"`
}

// Percentage weighs parsing at 30% and analysis at 70%, clamped to
// [0,100]. It is monotonically non-decreasing within a run because the
// underlying counters only ever increase.
func (s ProgressState) Percentage() float64 {
	if s.TotalFiles == 0 && s.TotalAnalyzers == 0 {
		return 0
	}

	parsing := 0.3 * float64(s.FilesProcessed) / float64(max(s.TotalFiles, 1))
	analysis := 0.7 * float64(s.AnalyzersCompleted) / float64(max(s.TotalAnalyzers, 1))

	pct := (parsing + analysis) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Elapsed returns the time since the run started
func (s ProgressState) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// Delta is one atomic progress update. Counter fields are increments;
// Phase replaces the current phase when non-empty.
type Delta struct {
	Phase              string
	FilesProcessed     int
	AnalyzersCompleted int
	TotalFiles         int
	TotalAnalyzers     int
}

// Subscriber receives progress snapshots. Callbacks are best-effort:
// a panicking subscriber is recovered and logged, never aborting the run.
type Subscriber func(ProgressState)

// Tracker is the thread-safe shared progress state for one run
type Tracker struct {
	mu          sync.Mutex
	state       ProgressState
	subscribers []Subscriber
}

// NewTracker creates a tracker in the pending state
func NewTracker(analysisID string) *Tracker {
	return &Tracker{
		state: ProgressState{
			AnalysisID: analysisID,
			Status:     StatusPending,
			StartTime:  time.Now(),
		},
	}
}

// Subscribe registers a progress callback
func (t *Tracker) Subscribe(sub Subscriber) {
	if sub == nil {
		return
	}
	t.mu.Lock()
	t.subscribers = append(t.subscribers, sub)
	t.mu.Unlock()
}

// State returns a snapshot of the current progress
func (t *Tracker) State() ProgressState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Start transitions pending → running
func (t *Tracker) Start() {
	t.transition(StatusRunning, "")
}

// Complete transitions to the completed terminal state
func (t *Tracker) Complete() {
	t.transition(StatusCompleted, "")
}

// Fail transitions to the failed terminal state with a message
func (t *Tracker) Fail(message string) {
	t.transition(StatusFailed, message)
}

func (t *Tracker) transition(next Status, message string) {
	t.mu.Lock()
	if t.state.Status.Terminal() {
		logger.Debugf("ignoring %s transition for terminal analysis %s", next, t.state.AnalysisID)
		t.mu.Unlock()
		return
	}
	t.state.Status = next
	if message != "" {
		t.state.ErrorMessage = message
	}
	if next == StatusCompleted {
		t.state.Phase = "Completed"
	}
	if next == StatusFailed {
		t.state.Phase = "Failed"
	}
	snapshot := t.state
	subs := t.subscribers
	t.mu.Unlock()

	notify(subs, snapshot)
}

// Update atomically merges a delta into the state and notifies
// subscribers. Counter increments below zero are ignored so monotonic
// fields only ever increase; total fields only grow.
func (t *Tracker) Update(delta Delta) {
	t.mu.Lock()
	if t.state.Status.Terminal() {
		t.mu.Unlock()
		return
	}

	if delta.Phase != "" {
		t.state.Phase = delta.Phase
	}
	if delta.FilesProcessed > 0 {
		t.state.FilesProcessed += delta.FilesProcessed
	}
	if delta.AnalyzersCompleted > 0 {
		t.state.AnalyzersCompleted += delta.AnalyzersCompleted
	}
	if delta.TotalFiles > t.state.TotalFiles {
		t.state.TotalFiles = delta.TotalFiles
	}
	if delta.TotalAnalyzers > t.state.TotalAnalyzers {
		t.state.TotalAnalyzers = delta.TotalAnalyzers
	}
	snapshot := t.state
	subs := t.subscribers
	t.mu.Unlock()

	notify(subs, snapshot)
}

func notify(subs []Subscriber, snapshot ProgressState) {
	for _, sub := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Warnf("progress subscriber panicked: %v", r)
				}
			}()
			sub(snapshot)
		}()
	}
}
