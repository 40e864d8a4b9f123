package database

import "gorm.io/gorm"

// Driver abstracts the relational backend behind the draft database.
// Only SQLite is wired today.
type Driver interface {
	// Name returns the driver name (e.g. "sqlite")
	Name() string

	// Open returns a GORM dialector for dsn
	Open(dsn string) (gorm.Dialector, error)

	// PreMigrationConfig applies connection settings before migrations run
	PreMigrationConfig(db *gorm.DB) error

	// PostMigrationConfig applies settings that must wait for the final schema
	PostMigrationConfig(db *gorm.DB) error
}
