package model

import "time"

// Draft namespace keys. A wizard draft is stored as exactly these three
// entries under its form id.
const (
	EntryStep      = "step"
	EntryData      = "data"
	EntryTimestamp = "timestamp"
)

// FormEntry is one key of a draft namespace.
type FormEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Namespace string `gorm:"size:64;not null;uniqueIndex:idx_form_entry_ns_key,priority:1" json:"namespace"`
	Key       string `gorm:"size:64;not null;uniqueIndex:idx_form_entry_ns_key,priority:2" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
}

// TableName specifies the table name for FormEntry
func (FormEntry) TableName() string {
	return "form_entries"
}
