// Package model defines the report document and the persisted draft records.
//
// The document types are plain data with validation predicates and no side
// effects. The gorm models (FormEntry, FormLog) back the draft store.
package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap is a custom type for storing JSON maps in SQLite
type JSONMap map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	return string(data), err
}

// Scan implements sql.Scanner interface
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONMap source type %T", value)
	}
	return json.Unmarshal(bytes, j)
}

// AllModels returns the gorm models of the main draft database. FormLog
// lives in its own database and is migrated there.
func AllModels() []interface{} {
	return []interface{}{
		&FormEntry{},
	}
}
