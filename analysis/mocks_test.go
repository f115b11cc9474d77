package analysis

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/flanksource/quality-unit/models"
)

// mockParser counts invocations and produces a minimal ParsedFile
type mockParser struct {
	calls atomic.Int64
	fail  map[string]bool
}

func (p *mockParser) Parse(path string) (models.ParsedFile, error) {
	p.calls.Add(1)
	if p.fail[path] {
		return models.ParsedFile{}, fmt.Errorf("synthetic parse failure")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return models.ParsedFile{}, err
	}

	return models.ParsedFile{
		Path:      path,
		Language:  models.DetectLanguage(path),
		Content:   string(content),
		LineCount: 1 + len(content)/20,
	}, nil
}

// mockUnit counts invocations and emits one configurable issue per file
type mockUnit struct {
	name       string
	category   models.IssueCategory
	languages  []string
	disabled   bool
	threshold  float64
	confidence float64
	severity   models.Severity
	failErr    error
	calls      atomic.Int64
	filesSeen  atomic.Int64
}

func newMockUnit(name string) *mockUnit {
	return &mockUnit{
		name:       name,
		category:   models.CategoryComplexity,
		languages:  []string{"go", "python", "javascript"},
		threshold:  0.5,
		confidence: 0.9,
		severity:   models.SeverityMedium,
	}
}

func (u *mockUnit) Name() string                   { return u.name }
func (u *mockUnit) Category() models.IssueCategory { return u.category }
func (u *mockUnit) SupportedLanguages() []string   { return u.languages }
func (u *mockUnit) Enabled() bool                  { return !u.disabled }
func (u *mockUnit) ConfidenceThreshold() float64   { return u.threshold }

func (u *mockUnit) Analyze(files []models.ParsedFile, actx *Context) ([]models.Issue, error) {
	u.calls.Add(1)
	u.filesSeen.Add(int64(len(files)))

	if u.failErr != nil {
		return nil, u.failErr
	}

	var issues []models.Issue
	for _, file := range files {
		loc := models.CodeLocation{FilePath: file.Path, LineStart: 1, LineEnd: 1}
		issues = append(issues, models.Issue{
			ID:         models.IssueID(u.name, loc, "finding"),
			Category:   u.category,
			Severity:   u.severity,
			Title:      fmt.Sprintf("%s finding in %s", u.name, file.Path),
			Location:   loc,
			Confidence: u.confidence,
		})
	}
	return issues, nil
}

// failingDiscovery simulates a filesystem failure
type failingDiscovery struct{}

func (failingDiscovery) Discover(root string, include, exclude []string) ([]string, error) {
	return nil, fmt.Errorf("permission denied")
}

// staticDiscovery returns a fixed path list regardless of the
// filesystem, simulating files that vanish between discovery and parse
type staticDiscovery struct {
	paths []string
}

func (d staticDiscovery) Discover(root string, include, exclude []string) ([]string, error) {
	return d.paths, nil
}
