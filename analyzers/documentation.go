package analyzers

import (
	"fmt"

	"github.com/flanksource/quality-unit/analysis"
	"github.com/flanksource/quality-unit/models"
)

// DocumentationAnalyzer flags exported/public declarations that lack a
// doc comment
type DocumentationAnalyzer struct {
	Disabled bool
	// MinLines skips trivial functions shorter than this
	MinLines int
}

// NewDocumentationAnalyzer creates the analyzer with default settings
func NewDocumentationAnalyzer() *DocumentationAnalyzer {
	return &DocumentationAnalyzer{MinLines: 3}
}

func (a *DocumentationAnalyzer) Name() string { return "documentation" }
func (a *DocumentationAnalyzer) Category() models.IssueCategory {
	return models.CategoryDocumentation
}
func (a *DocumentationAnalyzer) SupportedLanguages() []string {
	return []string{"go", "python", "javascript"}
}
func (a *DocumentationAnalyzer) Enabled() bool                { return !a.Disabled }
func (a *DocumentationAnalyzer) ConfidenceThreshold() float64 { return 0.6 }

func (a *DocumentationAnalyzer) Analyze(files []models.ParsedFile, actx *analysis.Context) ([]models.Issue, error) {
	var issues []models.Issue

	for _, file := range files {
		for _, fn := range file.Functions {
			if !fn.Exported || fn.HasDoc || fn.LineCount() < a.MinLines {
				continue
			}
			loc := models.CodeLocation{FilePath: file.Path, LineStart: fn.LineStart, LineEnd: fn.LineStart}
			title := fmt.Sprintf("Function %s has no doc comment", fn.Name)
			issues = append(issues, models.Issue{
				ID:          models.IssueID(a.Name(), loc, title),
				Category:    a.Category(),
				Severity:    models.SeverityInfo,
				Title:       title,
				Description: fmt.Sprintf("%s is part of the public surface but undocumented", fn.Name),
				Location:    loc,
				Suggestion:  "Add a doc comment describing behavior and contract",
				Confidence:  0.7,
			})
		}

		for _, cls := range file.Classes {
			if !cls.Exported || cls.HasDoc {
				continue
			}
			loc := models.CodeLocation{FilePath: file.Path, LineStart: cls.LineStart, LineEnd: cls.LineStart}
			title := fmt.Sprintf("Type %s has no doc comment", cls.Name)
			issues = append(issues, models.Issue{
				ID:          models.IssueID(a.Name(), loc, title),
				Category:    a.Category(),
				Severity:    models.SeverityInfo,
				Title:       title,
				Description: fmt.Sprintf("%s is part of the public surface but undocumented", cls.Name),
				Location:    loc,
				Suggestion:  "Add a doc comment describing what the type represents",
				Confidence:  0.7,
			})
		}
	}

	return issues, nil
}
