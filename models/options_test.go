package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsFile(t *testing.T) {
	content := `include_patterns:
  - "**/*.go"
exclude_patterns:
  - "**/generated/**"
max_workers: 8
confidence_threshold: 0.8
incremental: false
`
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"**/*.go"}, opts.IncludePatterns)
	assert.Equal(t, []string{"**/generated/**"}, opts.ExcludePatterns)
	assert.Equal(t, 8, opts.MaxWorkers)
	assert.Equal(t, 0.8, opts.ConfidenceThreshold)
	assert.False(t, opts.Incremental)

	// Fields the file leaves unset keep their defaults
	assert.Equal(t, DefaultOptions().CacheTTLHours, opts.CacheTTLHours)
	assert.Equal(t, DefaultOptions().MaxFileSizeMB, opts.MaxFileSizeMB)
}

func TestLoadOptionsFile_NormalizesOutOfRange(t *testing.T) {
	content := `max_workers: 0
confidence_threshold: 1.5
cache_ttl_hours: -1
`
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	opts, err := LoadOptionsFile(path)
	require.NoError(t, err)

	assert.Equal(t, 1, opts.MaxWorkers)
	assert.Equal(t, 1.0, opts.ConfidenceThreshold)
	assert.Equal(t, 24.0, opts.CacheTTLHours)
}

func TestLoadOptionsFile_Missing(t *testing.T) {
	_, err := LoadOptionsFile("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadOptionsFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_workers: [not a number\n"), 0644))

	_, err := LoadOptionsFile(path)
	assert.Error(t, err)
}
