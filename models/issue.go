package models

import (
	"fmt"
	"strings"
)

// IssueCategory classifies what kind of quality problem an issue describes
type IssueCategory string

const (
	CategorySecurity      IssueCategory = "security"
	CategoryPerformance   IssueCategory = "performance"
	CategoryComplexity    IssueCategory = "complexity"
	CategoryDuplication   IssueCategory = "duplication"
	CategoryTesting       IssueCategory = "testing"
	CategoryDocumentation IssueCategory = "documentation"
	CategoryHotspot       IssueCategory = "hotspot"
)

// AllCategories returns every known issue category
func AllCategories() []IssueCategory {
	return []IssueCategory{
		CategorySecurity,
		CategoryPerformance,
		CategoryComplexity,
		CategoryDuplication,
		CategoryTesting,
		CategoryDocumentation,
		CategoryHotspot,
	}
}

// Severity ranks how urgent an issue is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Weight returns the scoring weight for a severity, used by metric aggregation
func (s Severity) Weight() float64 {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 5
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityInfo:
		return 0.5
	default:
		return 1
	}
}

// CodeLocation points at the lines an issue covers
type CodeLocation struct {
	FilePath  string `json:"file_path" yaml:"file_path"`
	LineStart int    `json:"line_start" yaml:"line_start"`
	LineEnd   int    `json:"line_end" yaml:"line_end"`
}

func (l CodeLocation) String() string {
	if l.LineEnd > l.LineStart {
		return fmt.Sprintf("%s:%d-%d", l.FilePath, l.LineStart, l.LineEnd)
	}
	return fmt.Sprintf("%s:%d", l.FilePath, l.LineStart)
}

// Issue is a single finding reported by an analyzer unit
type Issue struct {
	ID          string        `json:"id"`
	Category    IssueCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Location    CodeLocation  `json:"location"`
	Suggestion  string        `json:"suggestion,omitempty"`
	// Confidence is the unit's certainty in [0,1]; issues below the
	// unit's threshold are dropped before merging.
	Confidence float64 `json:"confidence"`
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s/%s] %s (%s)", i.Category, i.Severity, i.Title, i.Location)
}

// IssueID builds a deterministic issue ID from its identifying parts
func IssueID(unit string, loc CodeLocation, title string) string {
	slug := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return fmt.Sprintf("%s:%s:%d:%s", unit, loc.FilePath, loc.LineStart, slug)
}
