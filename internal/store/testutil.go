package store

import (
	"os"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/verustcode/reportdesk/internal/database"
)

// SetupTestDB creates a temporary SQLite draft database for testing.
// It returns a Store instance and a cleanup function.
// The cleanup function should be called with defer in tests.
func SetupTestDB(t *testing.T) (Store, func()) {
	t.Helper()

	// Reset database state to allow re-initialization
	database.ResetForTesting()

	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()

	if err := database.InitWithPath(tmpPath); err != nil {
		os.Remove(tmpPath)
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	store := NewStore(database.Get())

	cleanup := func() {
		database.Close()
		database.ResetForTesting()
		os.Remove(tmpPath)
	}

	return store, cleanup
}

// SetupTestLogDB creates a temporary form log database for testing.
func SetupTestLogDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	database.ResetFormLogDBForTesting()

	path := filepath.Join(t.TempDir(), database.FormLogDBName)
	if err := database.InitFormLogDB(path); err != nil {
		t.Fatalf("Failed to initialize test form log database: %v", err)
	}

	cleanup := func() {
		database.CloseFormLogDB()
		database.ResetFormLogDBForTesting()
	}
	return database.GetFormLogDB(), cleanup
}
