package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/quality-unit/models"
)

func TestPersistence_Roundtrip(t *testing.T) {
	dir := t.TempDir()

	persist, err := NewPersistenceWithPath(dir)
	require.NoError(t, err)

	rec := FileRecord{
		Fingerprint: Fingerprint{Path: "/src/a.go", Hash: "abc", Size: 10, ModTime: time.Now()},
		Parsed:      models.ParsedFile{Path: "/src/a.go", Language: "go", LineCount: 3},
		Issues: []models.Issue{{
			ID:       "complexity:/src/a.go:1:too-long",
			Category: models.CategoryComplexity,
			Severity: models.SeverityMedium,
			Title:    "too long",
			Location: models.CodeLocation{FilePath: "/src/a.go", LineStart: 1, LineEnd: 5},
		}},
		CachedAt: time.Now(),
	}
	require.NoError(t, persist.Save(rec))
	require.NoError(t, persist.Close())

	// Reopen and read back
	persist, err = NewPersistenceWithPath(dir)
	require.NoError(t, err)
	defer persist.Close()

	loaded, err := persist.LoadAll()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.True(t, loaded[0].Fingerprint.Equal(rec.Fingerprint))
	assert.Equal(t, "go", loaded[0].Parsed.Language)
	require.Len(t, loaded[0].Issues, 1)
	assert.Equal(t, models.CategoryComplexity, loaded[0].Issues[0].Category)
}

func TestPersistence_DeleteAndClear(t *testing.T) {
	dir := t.TempDir()
	persist, err := NewPersistenceWithPath(dir)
	require.NoError(t, err)
	defer persist.Close()

	for _, path := range []string{"/a.go", "/b.go"} {
		require.NoError(t, persist.Save(FileRecord{
			Fingerprint: Fingerprint{Path: path, Hash: "h", Size: 1},
			Parsed:      models.ParsedFile{Path: path},
			CachedAt:    time.Now(),
		}))
	}

	require.NoError(t, persist.Delete("/a.go"))
	loaded, err := persist.LoadAll()
	require.NoError(t, err)
	assert.Len(t, loaded, 1)

	require.NoError(t, persist.Clear())
	loaded, err = persist.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestStoreWithPersistence_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	src := t.TempDir()
	path := writeFile(t, src, "a.go", "package a\n")
	fp := mustFingerprint(t, path)

	persist, err := NewPersistenceWithPath(dir)
	require.NoError(t, err)

	store := NewStoreWithPersistence(time.Hour, persist)
	store.Put(fp, models.ParsedFile{Path: fp.Path, Language: "go"}, nil)
	require.NoError(t, store.Close())

	persist, err = NewPersistenceWithPath(dir)
	require.NoError(t, err)
	store = NewStoreWithPersistence(time.Hour, persist)
	defer store.Close()

	rec, ok := store.Get(path)
	require.True(t, ok, "expected persisted record to survive restart")
	assert.Equal(t, "go", rec.Parsed.Language)
}
