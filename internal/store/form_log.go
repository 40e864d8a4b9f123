package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// FormLogStore defines operations for FormLog records.
// It uses the separate form log database, not the draft database, and
// implements logger.FormLogWriter.
type FormLogStore interface {
	// Write implements logger.FormLogWriter for batch writing captured records.
	Write(records []logger.FormLogRecord) error

	// BatchCreate creates multiple form log entries in a single statement
	BatchCreate(logs []model.FormLog) error

	// GetByFormID retrieves logs for a form with pagination, oldest first
	GetByFormID(ctx context.Context, formID string, page, pageSize int) ([]model.FormLog, int64, error)

	// GetByFormIDAndLevel retrieves logs at or above level with pagination
	GetByFormIDAndLevel(ctx context.Context, formID, level string, page, pageSize int) ([]model.FormLog, int64, error)

	// DeleteByFormID deletes all logs for a form
	DeleteByFormID(ctx context.Context, formID string) error

	// DeleteOlderThan deletes logs created before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// formLogStore implements FormLogStore using GORM.
type formLogStore struct {
	db *gorm.DB
}

// NewFormLogStore creates a FormLogStore on the form log database.
func NewFormLogStore(db *gorm.DB) FormLogStore {
	return &formLogStore{db: db}
}

func (s *formLogStore) Write(records []logger.FormLogRecord) error {
	if len(records) == 0 {
		return nil
	}
	logs := make([]model.FormLog, len(records))
	for i, r := range records {
		logs[i] = model.FormLog{
			CreatedAt: r.Time,
			FormID:    r.FormID,
			Level:     r.Level,
			Message:   r.Message,
			Caller:    r.Caller,
			Fields:    model.JSONMap(r.Fields),
		}
	}
	return s.BatchCreate(logs)
}

func (s *formLogStore) BatchCreate(logs []model.FormLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.Create(&logs).Error
}

func (s *formLogStore) GetByFormID(ctx context.Context, formID string, page, pageSize int) ([]model.FormLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.FormLog{}).Where("form_id = ?", formID)
	return paginate(query, page, pageSize)
}

func (s *formLogStore) GetByFormIDAndLevel(ctx context.Context, formID, level string, page, pageSize int) ([]model.FormLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.FormLog{}).
		Where("form_id = ? AND level IN ?", formID, levelsAtAndAbove(level))
	return paginate(query, page, pageSize)
}

func (s *formLogStore) DeleteByFormID(ctx context.Context, formID string) error {
	return s.db.WithContext(ctx).Where("form_id = ?", formID).Delete(&model.FormLog{}).Error
}

func (s *formLogStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.FormLog{})
	return result.RowsAffected, result.Error
}

func paginate(query *gorm.DB, page, pageSize int) ([]model.FormLog, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 100
	}

	var logs []model.FormLog
	err := query.Order("created_at ASC, id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logs).Error
	return logs, total, err
}

// levelsAtAndAbove returns all zap level names at or above level.
// Level priority: debug < info < warn < error < fatal
func levelsAtAndAbove(level string) []string {
	all := []string{"debug", "info", "warn", "error", "dpanic", "panic", "fatal"}
	for i, l := range all {
		if l == level {
			return all[i:]
		}
	}
	return all
}
