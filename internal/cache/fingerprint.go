package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Fingerprint is the cheap identity of a file's on-disk state. Two
// fingerprints are equal iff path, content hash and size all match.
// A strong content hash is used instead of mtime-only comparison, which
// is vulnerable to filesystem clock-resolution false negatives.
type Fingerprint struct {
	Path string `json:"path" gorm:"column:file_path;primaryKey"`
	Hash string `json:"hash" gorm:"column:file_hash;not null"`
	Size int64  `json:"size" gorm:"column:file_size;not null"`
	// ModTime is advisory only and never part of equality
	ModTime time.Time `json:"mod_time" gorm:"column:mod_time"`
}

// Equal reports whether two fingerprints identify the same file state
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Path == other.Path && f.Hash == other.Hash && f.Size == other.Size
}

// ComputeFingerprint stats and hashes a file's current on-disk state
func ComputeFingerprint(path string) (Fingerprint, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to get absolute path for %s: %w", path, err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}

	hash, err := hashFile(absPath)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("failed to hash %s: %w", absPath, err)
	}

	return Fingerprint{
		Path:    absPath,
		Hash:    hash,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

func hashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashContent returns the hex sha256 of in-memory content
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
