// Package store provides the data access layer for drafts and their logs.
// It keeps gorm behind small interfaces so the wizard and the logger never
// depend on a specific database.
package store

import "gorm.io/gorm"

// Store aggregates the stores that live in the main draft database.
type Store interface {
	Forms() FormStore

	// DB returns the underlying database connection for advanced operations.
	// Use sparingly - prefer using specific store methods.
	DB() *gorm.DB

	// Transaction executes operations within a database transaction.
	Transaction(fn func(Store) error) error
}

// gormStore implements Store interface using GORM.
type gormStore struct {
	db        *gorm.DB
	formStore FormStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:        db,
		formStore: newFormStore(db),
	}
}

func (s *gormStore) Forms() FormStore {
	return s.formStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{
			db:        tx,
			formStore: newFormStore(tx),
		})
	})
}
