package analysis

import "fmt"

// ResourceError is a fatal filesystem or discovery failure. It aborts
// the run with no partial result.
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource error on %s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// ParsingError is a recovered single-file parse failure. It is recorded
// in the run ledger and the run continues.
type ParsingError struct {
	FilePath string
	Err      error
}

func (e *ParsingError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.FilePath, e.Err)
}

func (e *ParsingError) Unwrap() error { return e.Err }

// AnalysisError is a recovered per-unit failure, or — when Unit is empty
// — the fatal condition that zero files parsed overall.
type AnalysisError struct {
	Unit string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Unit == "" {
		return fmt.Sprintf("analysis error: %v", e.Err)
	}
	return fmt.Sprintf("analyzer %s failed: %v", e.Unit, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// CacheError is a recovered corrupted or unreadable cache entry, always
// treated as a miss
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache error for %s: %v", e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }
