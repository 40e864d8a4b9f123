// Package database provides database initialization and connection management.
// It uses GORM with SQLite for the local draft database, with driver
// abstraction kept so another relational backend can be plugged in.
package database

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
)

const (
	// DefaultDBPath is used when the configuration leaves database.path empty
	DefaultDBPath = "./data/reportdesk.db"
)

var (
	db   *gorm.DB
	once sync.Once
)

// Init initializes the draft database at DefaultDBPath.
func Init() error {
	return InitWithPath(DefaultDBPath)
}

// InitWithPath initializes the draft database at dbPath and runs migrations.
// Only the first call takes effect; use ResetForTesting to re-initialize.
func InitWithPath(dbPath string) error {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	var initErr error
	once.Do(func() {
		initErr = initDB(dbPath)
	})
	return initErr
}

// initDB creates the database connection and runs migrations
func initDB(dbPath string) error {
	logger.Info("Initializing database", zap.String("path", dbPath))

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("Failed to create database directory", zap.Error(err), zap.String("dir", dir))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to create database directory", err)
	}

	driver := &SQLiteDriver{}

	dialector, err := driver.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to open database", err)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to connect to database", err)
	}

	// 迁移前配置：连接池、WAL模式
	// Pre-migration configuration: connection pool, WAL mode
	if err := driver.PreMigrationConfig(conn); err != nil {
		logger.Error("Failed to apply pre-migration config", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to apply pre-migration config", err)
	}

	if err := migrate(conn); err != nil {
		return err
	}

	if err := driver.PostMigrationConfig(conn); err != nil {
		logger.Error("Failed to apply post-migration config", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to apply post-migration config", err)
	}

	db = conn
	logger.Info("Database initialized successfully", zap.String("driver", driver.Name()))
	return nil
}

// migrate runs the custom migrations, then GORM auto-migration for all models
func migrate(conn *gorm.DB) error {
	logger.Info("Running database migrations")

	// Must run before AutoMigrate creates the unique (namespace, key) index
	if err := migrateDedupeFormEntries(conn); err != nil {
		logger.Error("Failed to deduplicate form_entries", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to deduplicate form_entries", err)
	}

	models := model.AllModels()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run database migrations", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to run database migrations", err)
	}

	logger.Info("Database migrations completed", zap.Int("models", len(models)))
	return nil
}

// Get returns the database instance.
// Panics if the database hasn't been initialized.
func Get() *gorm.DB {
	if db == nil {
		panic("database not initialized, call Init first")
	}
	return db
}

// IsInitialized reports whether Init has succeeded.
func IsInitialized() bool {
	return db != nil
}

// Close closes the database connection
func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	logger.Info("Closing database connection")
	return sqlDB.Close()
}

// ResetForTesting resets the database state for testing purposes.
// WARNING: Only use this function in tests!
func ResetForTesting() {
	if db != nil {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		db = nil
	}
	once = sync.Once{}
}

// Transaction executes a function within a database transaction
func Transaction(fn func(tx *gorm.DB) error) error {
	return Get().Transaction(fn)
}

// HealthCheck performs a simple health check on the database
func HealthCheck() error {
	if db == nil {
		return errors.New(errors.ErrCodeDBConnection, "database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get database connection", err)
	}
	return sqlDB.Ping()
}
