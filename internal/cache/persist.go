package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/flanksource/commons/logger"

	"github.com/flanksource/quality-unit/models"
)

// persistedRecord is the database row shape for one FileRecord
type persistedRecord struct {
	FilePath string             `gorm:"column:file_path;primaryKey"`
	FileHash string             `gorm:"column:file_hash;not null"`
	FileSize int64              `gorm:"column:file_size;not null"`
	ModTime  time.Time          `gorm:"column:mod_time"`
	Parsed   *models.ParsedFile `gorm:"column:parsed_json;serializer:json"`
	Issues   []models.Issue     `gorm:"column:issues_json;serializer:json"`
	CachedAt time.Time          `gorm:"column:cached_at;index"`
}

func (persistedRecord) TableName() string {
	return "file_records"
}

// Persistence stores FileRecords in SQLite so incremental analysis
// survives process restarts
type Persistence struct {
	db *gorm.DB
}

// NewPersistence opens the default cache database under
// ~/.cache/quality-unit
func NewPersistence() (*Persistence, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewPersistenceWithPath(filepath.Join(homeDir, ".cache", "quality-unit"))
}

// NewPersistenceWithPath opens a cache database in the given directory
func NewPersistenceWithPath(cacheDir string) (*Persistence, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "cache.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := db.AutoMigrate(&persistedRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache schema: %w", err)
	}

	return &Persistence{db: db}, nil
}

// LoadAll reads every persisted record. Rows that fail to decode are
// skipped and removed; a corrupt entry is a miss, never an error.
func (p *Persistence) LoadAll() ([]FileRecord, error) {
	var rows []persistedRecord
	if err := p.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load cache records: %w", err)
	}

	records := make([]FileRecord, 0, len(rows))
	for _, row := range rows {
		if row.Parsed == nil {
			logger.Debugf("dropping corrupt cache row for %s", row.FilePath)
			p.db.Delete(&persistedRecord{}, "file_path = ?", row.FilePath)
			continue
		}
		records = append(records, FileRecord{
			Fingerprint: Fingerprint{
				Path:    row.FilePath,
				Hash:    row.FileHash,
				Size:    row.FileSize,
				ModTime: row.ModTime,
			},
			Parsed:   *row.Parsed,
			Issues:   row.Issues,
			CachedAt: row.CachedAt,
		})
	}
	return records, nil
}

// Save upserts one record
func (p *Persistence) Save(rec FileRecord) error {
	parsed := rec.Parsed
	row := persistedRecord{
		FilePath: rec.Fingerprint.Path,
		FileHash: rec.Fingerprint.Hash,
		FileSize: rec.Fingerprint.Size,
		ModTime:  rec.Fingerprint.ModTime,
		Parsed:   &parsed,
		Issues:   rec.Issues,
		CachedAt: rec.CachedAt,
	}
	return p.db.Save(&row).Error
}

// Delete removes one record by path
func (p *Persistence) Delete(path string) error {
	return p.db.Delete(&persistedRecord{}, "file_path = ?", path).Error
}

// Clear removes all persisted records
func (p *Persistence) Clear() error {
	return p.db.Exec("DELETE FROM file_records").Error
}

// Close closes the underlying database connection
func (p *Persistence) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
