package analysis

import (
	"github.com/flanksource/quality-unit/models"
)

// ParserAdapter turns a source file into the language-agnostic parse
// representation the engine operates on. Implementations are synchronous
// local calls; the engine provides all concurrency around them.
type ParserAdapter interface {
	Parse(path string) (models.ParsedFile, error)
}

// FileDiscovery resolves include/exclude glob patterns to a file list
// under a root directory
type FileDiscovery interface {
	Discover(root string, includeGlobs, excludeGlobs []string) ([]string, error)
}

// AnalyzerUnit is a pluggable quality check. Capabilities are a static
// interface contract verified at compile time rather than runtime
// attribute probing: a value that does not implement AnalyzerUnit cannot
// be registered at all.
//
// Analyze must be safe for reuse across runs; the engine never invokes
// the same unit concurrently with itself within one run.
type AnalyzerUnit interface {
	Name() string
	Category() models.IssueCategory
	SupportedLanguages() []string
	Enabled() bool
	// ConfidenceThreshold is the minimum confidence in [0,1] an emitted
	// issue must carry to survive filtering
	ConfidenceThreshold() float64
	Analyze(files []models.ParsedFile, actx *Context) ([]models.Issue, error)
}

// Context carries run-scoped information into analyzer units
type Context struct {
	Root    string
	Options models.AnalysisOptions
}

// SupportsLanguage reports whether a unit declares support for a language
func SupportsLanguage(unit AnalyzerUnit, language string) bool {
	for _, lang := range unit.SupportedLanguages() {
		if lang == language {
			return true
		}
	}
	return false
}
