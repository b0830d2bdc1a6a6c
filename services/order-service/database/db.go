package database

import (
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open opens the order store. The file lives on a volume shared by every
// replica of the service, so the DSN asks for immediate write transactions:
// lock contention from sibling replicas surfaces as SQLITE_BUSY at BEGIN
// instead of at COMMIT, where the repository's retry loop can handle it.
// The engine-level busy timeout is kept short; waiting is done in the
// repository with jittered backoff.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=250&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open order store: %w", err)
	}
	return db, nil
}
