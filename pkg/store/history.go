package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// HistoryEntry records one finished file download.
type HistoryEntry struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Provider     string    `gorm:"index" json:"provider"`
	TorrentID    string    `json:"torrent_id,omitempty"`
	Name         string    `json:"name,omitempty"`
	OriginalLink string    `json:"original_link"`
	Filename     string    `json:"filename"`
	Filesize     int64     `json:"filesize"`
	Path         string    `json:"path"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

type History struct {
	db *gorm.DB
}

// OpenHistory opens (creating if needed) the SQLite history database at path.
func OpenHistory(path string) (*History, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	if err := db.AutoMigrate(&HistoryEntry{}); err != nil {
		return nil, fmt.Errorf("migrate history: %w", err)
	}

	return &History{db: db}, nil
}

func (h *History) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return h.db.WithContext(ctx).Create(entry).Error
}

// List returns the newest entries first. A limit of 0 returns everything.
func (h *History) List(ctx context.Context, limit int) ([]HistoryEntry, error) {
	entries := make([]HistoryEntry, 0)

	q := h.db.WithContext(ctx).Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

// Prune deletes entries created before cutoff and reports how many went.
func (h *History) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res := h.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&HistoryEntry{})
	return res.RowsAffected, res.Error
}

func (h *History) Close() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
