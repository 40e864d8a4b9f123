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

// FormLogDBName is the file name of the form log database, created next to
// the draft database so log bursts never contend with autosave writes.
const FormLogDBName = "form_logs.db"

var (
	formLogDB   *gorm.DB
	formLogOnce sync.Once
)

// FormLogDBPath returns the form log database path that belongs to the
// draft database at draftPath.
func FormLogDBPath(draftPath string) string {
	if draftPath == "" {
		draftPath = DefaultDBPath
	}
	return filepath.Join(filepath.Dir(draftPath), FormLogDBName)
}

// InitFormLogDB initializes the form log database. Only the first call takes effect.
func InitFormLogDB(dbPath string) error {
	var initErr error
	formLogOnce.Do(func() {
		initErr = initFormLogDB(dbPath)
	})
	return initErr
}

func initFormLogDB(dbPath string) error {
	logger.Info("Initializing form log database", zap.String("path", dbPath))

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to create form log db directory", err)
	}

	driver := &SQLiteDriver{}
	dialector, err := driver.Open(dbPath)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to open form log database", err)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("Failed to open form log database", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to open form log database", err)
	}

	if err := driver.PreMigrationConfig(conn); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to configure form log database", err)
	}

	if err := conn.AutoMigrate(&model.FormLog{}); err != nil {
		logger.Error("Failed to migrate form log model", zap.Error(err))
		return errors.Wrap(errors.ErrCodeDBMigration, "failed to migrate form log model", err)
	}

	formLogDB = conn
	logger.Info("Form log database initialized", zap.String("path", dbPath))
	return nil
}

// GetFormLogDB returns the form log database connection.
// It panics if the database has not been initialized.
func GetFormLogDB() *gorm.DB {
	if formLogDB == nil {
		panic("form log database not initialized - call InitFormLogDB first")
	}
	return formLogDB
}

// IsFormLogDBInitialized returns true if the form log database has been initialized.
func IsFormLogDBInitialized() bool {
	return formLogDB != nil
}

// CloseFormLogDB closes the form log database connection.
func CloseFormLogDB() error {
	if formLogDB == nil {
		return nil
	}
	sqlDB, err := formLogDB.DB()
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to get form log sql.DB", err)
	}
	if err := sqlDB.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeDBConnection, "failed to close form log database", err)
	}
	logger.Info("Form log database closed")
	return nil
}

// ResetFormLogDBForTesting resets the form log database state.
// WARNING: Only use this function in tests!
func ResetFormLogDBForTesting() {
	if formLogDB != nil {
		sqlDB, _ := formLogDB.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		formLogDB = nil
	}
	formLogOnce = sync.Once{}
}
