package analyzers

import (
	"fmt"

	"github.com/flanksource/quality-unit/analysis"
	"github.com/flanksource/quality-unit/models"
)

// ComplexityAnalyzer flags structural complexity smells: overlong
// functions, deep nesting and long parameter lists
type ComplexityAnalyzer struct {
	MaxFunctionLines int
	MaxNestingDepth  int
	MaxParameters    int
	Disabled         bool
}

// NewComplexityAnalyzer creates the analyzer with default limits
func NewComplexityAnalyzer() *ComplexityAnalyzer {
	return &ComplexityAnalyzer{
		MaxFunctionLines: 50,
		MaxNestingDepth:  4,
		MaxParameters:    5,
	}
}

func (a *ComplexityAnalyzer) Name() string                   { return "complexity" }
func (a *ComplexityAnalyzer) Category() models.IssueCategory { return models.CategoryComplexity }
func (a *ComplexityAnalyzer) SupportedLanguages() []string {
	return []string{"go", "python", "javascript"}
}
func (a *ComplexityAnalyzer) Enabled() bool                { return !a.Disabled }
func (a *ComplexityAnalyzer) ConfidenceThreshold() float64 { return 0.7 }

func (a *ComplexityAnalyzer) Analyze(files []models.ParsedFile, actx *analysis.Context) ([]models.Issue, error) {
	var issues []models.Issue

	for _, file := range files {
		for _, fn := range file.Functions {
			loc := models.CodeLocation{FilePath: file.Path, LineStart: fn.LineStart, LineEnd: fn.LineEnd}

			if lines := fn.LineCount(); lines > a.MaxFunctionLines {
				title := fmt.Sprintf("Function %s is too long", fn.Name)
				issues = append(issues, models.Issue{
					ID:          models.IssueID(a.Name(), loc, title),
					Category:    a.Category(),
					Severity:    severityForExcess(lines, a.MaxFunctionLines),
					Title:       title,
					Description: fmt.Sprintf("%s spans %d lines, limit is %d", fn.Name, lines, a.MaxFunctionLines),
					Location:    loc,
					Suggestion:  "Extract cohesive blocks into helper functions",
					Confidence:  0.9,
				})
			}

			if fn.NestingDepth > a.MaxNestingDepth {
				title := fmt.Sprintf("Function %s is nested too deeply", fn.Name)
				issues = append(issues, models.Issue{
					ID:          models.IssueID(a.Name(), loc, title),
					Category:    a.Category(),
					Severity:    models.SeverityMedium,
					Title:       title,
					Description: fmt.Sprintf("%s reaches nesting depth %d, limit is %d", fn.Name, fn.NestingDepth, a.MaxNestingDepth),
					Location:    loc,
					Suggestion:  "Invert conditions with early returns to flatten the body",
					Confidence:  0.8,
				})
			}

			if fn.Parameters > a.MaxParameters {
				title := fmt.Sprintf("Function %s has too many parameters", fn.Name)
				issues = append(issues, models.Issue{
					ID:          models.IssueID(a.Name(), loc, title),
					Category:    a.Category(),
					Severity:    models.SeverityLow,
					Title:       title,
					Description: fmt.Sprintf("%s takes %d parameters, limit is %d", fn.Name, fn.Parameters, a.MaxParameters),
					Location:    loc,
					Suggestion:  "Group related parameters into a struct",
					Confidence:  0.85,
				})
			}
		}
	}

	return issues, nil
}

func severityForExcess(actual, limit int) models.Severity {
	if actual > limit*3 {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}
