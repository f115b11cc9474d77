package files

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// skipDirs are directory names never descended into regardless of patterns
var skipDirs = map[string]bool{
	"vendor":       true,
	"node_modules": true,
	"__pycache__":  true,
}

// Discovery resolves include/exclude glob patterns to a deterministic,
// lexically ordered file list under a root directory
type Discovery struct {
	// MaxFileSizeMB filters out files larger than this, 0 disables
	MaxFileSizeMB float64
}

// Discover walks root and returns absolute paths of regular files whose
// root-relative path matches at least one include pattern and no exclude
// pattern. Patterns use doublestar syntax ("**/*.go").
func (d *Discovery) Discover(root string, includeGlobs, excludeGlobs []string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", absRoot, err)
	}

	// A single-file root bypasses pattern matching
	if !info.IsDir() {
		return []string{absRoot}, nil
	}

	var matches []string
	err = filepath.WalkDir(absRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			name := entry.Name()
			if path != absRoot && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if !matchAny(relPath, includeGlobs) || matchAny(relPath, excludeGlobs) {
			return nil
		}

		if d.MaxFileSizeMB > 0 {
			if info, err := entry.Info(); err == nil {
				if float64(info.Size())/(1024*1024) > d.MaxFileSizeMB {
					return nil
				}
			}
		}

		matches = append(matches, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", absRoot, err)
	}

	return matches, nil
}

// matchAny reports whether path matches at least one pattern. Invalid
// patterns fall back to literal comparison.
func matchAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err != nil {
			if pattern == path {
				return true
			}
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
