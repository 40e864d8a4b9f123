package database

import (
	"net/url"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verustcode/reportdesk/pkg/logger"
)

// busyTimeoutMillis makes a writer wait instead of failing with SQLITE_BUSY
// while the autosave and the purge job touch the same file.
const busyTimeoutMillis = "5000"

// SQLiteDriver implements the Driver interface for SQLite
type SQLiteDriver struct{}

// Name returns the driver name
func (d *SQLiteDriver) Name() string {
	return "sqlite"
}

// Open opens a SQLite database, adding a busy timeout pragma to the DSN
func (d *SQLiteDriver) Open(dsn string) (gorm.Dialector, error) {
	return sqlite.Open(sqliteDSN(dsn)), nil
}

// sqliteDSN appends the busy_timeout pragma unless the caller set one.
func sqliteDSN(path string) string {
	if strings.Contains(path, "busy_timeout") {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=" + url.QueryEscape("busy_timeout("+busyTimeoutMillis+")")
}

// PreMigrationConfig applies SQLite configuration before migration
func (d *SQLiteDriver) PreMigrationConfig(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	// 单连接，避免并发写冲突
	// Single connection to avoid concurrent write conflicts
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
		logger.Warn("Failed to enable WAL mode", zap.Error(err))
	}
	if err := db.Exec("PRAGMA synchronous = NORMAL").Error; err != nil {
		logger.Warn("Failed to set synchronous mode", zap.Error(err))
	}

	logger.Debug("SQLite pre-migration config applied",
		zap.String("journal_mode", "WAL"),
		zap.String("synchronous", "NORMAL"),
	)
	return nil
}

// PostMigrationConfig applies SQLite configuration after migration.
// The draft tables carry no foreign keys; the pragma is kept on so any
// future relation is enforced.
func (d *SQLiteDriver) PostMigrationConfig(db *gorm.DB) error {
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		logger.Warn("Failed to enable foreign keys", zap.Error(err))
	}
	return nil
}
