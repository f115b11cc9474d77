package parsers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_GoFile(t *testing.T) {
	content := `package sample

import "fmt"

// Greet says hello
func Greet(name string, times int) {
	for i := 0; i < times; i++ {
		fmt.Println("hello", name)
	}
}

func helper() {
	fmt.Println("internal")
}

// Config holds settings
type Config struct {
	Name string
}
`
	path := filepath.Join(t.TempDir(), "sample.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	parsed, err := NewSourceParser().Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "go", parsed.Language)
	require.Len(t, parsed.Functions, 2)

	greet := parsed.Functions[0]
	assert.Equal(t, "Greet", greet.Name)
	assert.True(t, greet.Exported)
	assert.True(t, greet.HasDoc)
	assert.Equal(t, 2, greet.Parameters)
	assert.Greater(t, greet.LineEnd, greet.LineStart)

	helper := parsed.Functions[1]
	assert.Equal(t, "helper", helper.Name)
	assert.False(t, helper.Exported)
	assert.False(t, helper.HasDoc)
	assert.Equal(t, 0, helper.Parameters)

	require.Len(t, parsed.Classes, 1)
	assert.Equal(t, "Config", parsed.Classes[0].Name)
	assert.True(t, parsed.Classes[0].HasDoc)

	require.Len(t, parsed.Imports, 1)
	assert.Equal(t, "fmt", parsed.Imports[0].Module)
}

func TestParse_GoMethodReceiver(t *testing.T) {
	content := `package sample

func (c *Config) Apply(value string) error {
	return nil
}
`
	path := filepath.Join(t.TempDir(), "method.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	parsed, err := NewSourceParser().Parse(path)
	require.NoError(t, err)

	require.Len(t, parsed.Functions, 1)
	assert.Equal(t, "Apply", parsed.Functions[0].Name)
	assert.Equal(t, 1, parsed.Functions[0].Parameters)
}

func TestParse_PythonFile(t *testing.T) {
	content := `import os
from pathlib import Path


class Loader:
    """Loads things."""

    def load(self, path, mode):
        """Load a file."""
        if mode:
            with open(path) as f:
                return f.read()
        return None

def _internal():
    pass
`
	path := filepath.Join(t.TempDir(), "sample.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	parsed, err := NewSourceParser().Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "python", parsed.Language)
	require.Len(t, parsed.Classes, 1)
	assert.Equal(t, "Loader", parsed.Classes[0].Name)
	assert.True(t, parsed.Classes[0].HasDoc)

	require.Len(t, parsed.Functions, 2)
	load := parsed.Functions[0]
	assert.Equal(t, "load", load.Name)
	assert.True(t, load.Exported)
	assert.True(t, load.HasDoc)
	assert.Equal(t, 3, load.Parameters)

	internal := parsed.Functions[1]
	assert.Equal(t, "_internal", internal.Name)
	assert.False(t, internal.Exported)

	assert.Len(t, parsed.Imports, 2)
}

func TestParse_UnknownLanguage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text\n"), 0644))

	parsed, err := NewSourceParser().Parse(path)
	require.NoError(t, err)
	assert.Empty(t, parsed.Language)
	assert.Empty(t, parsed.Functions)
	assert.Equal(t, 2, parsed.LineCount)
}

func TestParse_MissingFile(t *testing.T) {
	_, err := NewSourceParser().Parse("/does/not/exist.go")
	assert.Error(t, err)
}
