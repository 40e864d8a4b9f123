package model

import "time"

// FormLog is a log line captured for one draft.
type FormLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	FormID  string  `gorm:"size:64;not null;index" json:"form_id"`
	Level   string  `gorm:"size:10;not null;index" json:"level"`
	Message string  `gorm:"type:text;not null" json:"message"`
	Fields  JSONMap `gorm:"type:text" json:"fields,omitempty"`
	Caller  string  `gorm:"size:255" json:"caller,omitempty"`
}

// TableName specifies the table name for FormLog
func (FormLog) TableName() string {
	return "form_logs"
}
