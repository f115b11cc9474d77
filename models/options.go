package models

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnalysisOptions configures a single analysis run
type AnalysisOptions struct {
	IncludePatterns     []string `json:"include_patterns" yaml:"include_patterns"`
	ExcludePatterns     []string `json:"exclude_patterns" yaml:"exclude_patterns"`
	ParallelProcessing  bool     `json:"parallel_processing" yaml:"parallel_processing"`
	MaxWorkers          int      `json:"max_workers" yaml:"max_workers"`
	UseCache            bool     `json:"use_cache" yaml:"use_cache"`
	Incremental         bool     `json:"incremental" yaml:"incremental"`
	ConfidenceThreshold float64  `json:"confidence_threshold" yaml:"confidence_threshold"`
	MaxFileSizeMB       float64  `json:"max_file_size_mb" yaml:"max_file_size_mb"`
	CacheTTLHours       float64  `json:"cache_ttl_hours" yaml:"cache_ttl_hours"`
	CategoryFilter      []string `json:"category_filter,omitempty" yaml:"category_filter"`
	LanguageFilter      []string `json:"language_filter,omitempty" yaml:"language_filter"`
}

// DefaultOptions returns the options used when none are supplied
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		IncludePatterns:     []string{"**/*.go", "**/*.py", "**/*.js", "**/*.ts"},
		ExcludePatterns:     []string{"**/vendor/**", "**/node_modules/**", "**/.git/**"},
		ParallelProcessing:  true,
		MaxWorkers:          4,
		UseCache:            true,
		Incremental:         true,
		ConfidenceThreshold: 0.5,
		MaxFileSizeMB:       10,
		CacheTTLHours:       24,
	}
}

// Normalize clamps out-of-range fields to usable values
func (o *AnalysisOptions) Normalize() {
	if o.MaxWorkers < 1 {
		o.MaxWorkers = 1
	}
	if o.ConfidenceThreshold < 0 {
		o.ConfidenceThreshold = 0
	}
	if o.ConfidenceThreshold > 1 {
		o.ConfidenceThreshold = 1
	}
	if o.MaxFileSizeMB <= 0 {
		o.MaxFileSizeMB = 10
	}
	if o.CacheTTLHours <= 0 {
		o.CacheTTLHours = 24
	}
}

// CanonicalString serializes options deterministically so that equal
// options always produce equal run-cache keys. Slices are sorted copies;
// field order is fixed.
func (o AnalysisOptions) CanonicalString() string {
	sortedCopy := func(in []string) []string {
		out := append([]string(nil), in...)
		sort.Strings(out)
		return out
	}

	var b strings.Builder
	fmt.Fprintf(&b, "include=%s;", strings.Join(sortedCopy(o.IncludePatterns), ","))
	fmt.Fprintf(&b, "exclude=%s;", strings.Join(sortedCopy(o.ExcludePatterns), ","))
	fmt.Fprintf(&b, "parallel=%t;workers=%d;", o.ParallelProcessing, o.MaxWorkers)
	fmt.Fprintf(&b, "cache=%t;incremental=%t;", o.UseCache, o.Incremental)
	fmt.Fprintf(&b, "confidence=%.4f;maxsize=%.2f;ttl=%.2f;", o.ConfidenceThreshold, o.MaxFileSizeMB, o.CacheTTLHours)
	fmt.Fprintf(&b, "categories=%s;", strings.Join(sortedCopy(o.CategoryFilter), ","))
	fmt.Fprintf(&b, "languages=%s", strings.Join(sortedCopy(o.LanguageFilter), ","))
	return b.String()
}

// LoadOptionsFile reads analysis options from a YAML file, applying
// defaults for fields the file leaves unset
func LoadOptionsFile(path string) (AnalysisOptions, error) {
	opts := DefaultOptions()

	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("failed to read options file: %w", err)
	}

	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("failed to parse options file: %w", err)
	}

	opts.Normalize()
	return opts, nil
}
