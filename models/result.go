package models

import (
	"time"
)

// QualityMetrics aggregates an entire run's findings into scores
type QualityMetrics struct {
	OverallScore float64 `json:"overall_score"`
	// CategoryScores maps each issue category to a 0-100 score
	CategoryScores       map[IssueCategory]float64 `json:"category_scores"`
	MaintainabilityIndex float64                   `json:"maintainability_index"`
	// TechnicalDebtRatio is weighted issues per 1000 lines of code
	TechnicalDebtRatio float64 `json:"technical_debt_ratio"`
	TotalIssues        int     `json:"total_issues"`
	TotalLines         int     `json:"total_lines"`
}

// RunError is one recovered failure recorded during a run
type RunError struct {
	Kind string `json:"kind"`
	// FilePath is set for parsing errors, Unit for analyzer failures
	FilePath string `json:"file_path,omitempty"`
	Unit     string `json:"unit,omitempty"`
	Message  string `json:"message"`
}

// RunLedger accumulates recovered per-file and per-unit failures so
// callers can audit partial failure without losing the rest of the run
type RunLedger struct {
	ParsingErrors  []RunError `json:"parsing_errors,omitempty"`
	AnalysisErrors []RunError `json:"analysis_errors,omitempty"`
	CacheErrors    []RunError `json:"cache_errors,omitempty"`
}

// Empty reports whether the ledger recorded no failures
func (l RunLedger) Empty() bool {
	return len(l.ParsingErrors) == 0 && len(l.AnalysisErrors) == 0 && len(l.CacheErrors) == 0
}

// Count returns the total number of recorded failures
func (l RunLedger) Count() int {
	return len(l.ParsingErrors) + len(l.AnalysisErrors) + len(l.CacheErrors)
}

// AnalysisRunResult is the immutable output of one orchestrator run
type AnalysisRunResult struct {
	AnalysisID   string          `json:"analysis_id"`
	CodebasePath string          `json:"codebase_path"`
	ParsedFiles  []ParsedFile    `json:"parsed_files,omitempty"`
	Issues       []Issue         `json:"issues"`
	Metrics      QualityMetrics  `json:"metrics"`
	Options      AnalysisOptions `json:"options"`
	Ledger       RunLedger       `json:"ledger"`
	Timestamp    time.Time       `json:"timestamp"`
	Duration     time.Duration   `json:"duration"`
	// FromCache marks results served verbatim from the run cache
	FromCache bool `json:"from_cache,omitempty"`
}

// IssuesByFile groups the merged issues by the file they were found in
func (r *AnalysisRunResult) IssuesByFile() map[string][]Issue {
	grouped := make(map[string][]Issue)
	for _, issue := range r.Issues {
		grouped[issue.Location.FilePath] = append(grouped[issue.Location.FilePath], issue)
	}
	return grouped
}

// IssuesBySeverity counts merged issues per severity
func (r *AnalysisRunResult) IssuesBySeverity() map[Severity]int {
	counts := make(map[Severity]int)
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	return counts
}
