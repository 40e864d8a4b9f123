package store

import (
	"context"
	"sort"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/verustcode/reportdesk/internal/model"
)

// FormSummary describes one stored draft namespace.
type FormSummary struct {
	Namespace string    `json:"form_id"`
	Step      string    `json:"step"`
	SavedAt   time.Time `json:"saved_at"`
}

// FormStore defines operations on draft entries. It satisfies persist.Storage.
type FormStore interface {
	// Get returns the value of key in namespace; ok is false when absent.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Set upserts every entry of namespace in one transaction.
	Set(ctx context.Context, namespace string, entries map[string]string) error
	// DeleteNamespace removes every entry of namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// List returns every namespace that carries a timestamp entry, newest first.
	List(ctx context.Context) ([]FormSummary, error)
	// DeleteExpired removes every namespace whose timestamp is before cutoff
	// and returns how many namespaces were removed.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// Transaction support
	WithTx(tx *gorm.DB) FormStore
}

// formStore implements FormStore using GORM.
type formStore struct {
	db *gorm.DB
}

func newFormStore(db *gorm.DB) FormStore {
	return &formStore{db: db}
}

// NewFormStore returns a FormStore on db.
func NewFormStore(db *gorm.DB) FormStore {
	return newFormStore(db)
}

func (s *formStore) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	var entries []model.FormEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", namespace, key).
		Limit(1).
		Find(&entries).Error
	if err != nil {
		return "", false, err
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	return entries[0].Value, true, nil
}

func (s *formStore) Set(ctx context.Context, namespace string, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([]model.FormEntry, 0, len(entries))
	for k, v := range entries {
		rows = append(rows, model.FormEntry{Namespace: namespace, Key: k, Value: v})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
}

func (s *formStore) DeleteNamespace(ctx context.Context, namespace string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Delete(&model.FormEntry{}).Error
}

func (s *formStore) List(ctx context.Context) ([]FormSummary, error) {
	var stamps []model.FormEntry
	err := s.db.WithContext(ctx).
		Where("key = ?", model.EntryTimestamp).
		Find(&stamps).Error
	if err != nil {
		return nil, err
	}
	if len(stamps) == 0 {
		return []FormSummary{}, nil
	}

	namespaces := make([]string, len(stamps))
	for i, e := range stamps {
		namespaces[i] = e.Namespace
	}
	var steps []model.FormEntry
	err = s.db.WithContext(ctx).
		Where("key = ? AND namespace IN ?", model.EntryStep, namespaces).
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	stepOf := make(map[string]string, len(steps))
	for _, e := range steps {
		stepOf[e.Namespace] = e.Value
	}

	out := make([]FormSummary, 0, len(stamps))
	for _, e := range stamps {
		ms, err := strconv.ParseInt(e.Value, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, FormSummary{
			Namespace: e.Namespace,
			Step:      stepOf[e.Namespace],
			SavedAt:   time.UnixMilli(ms),
		})
	}
	sortSummaries(out)
	return out, nil
}

func (s *formStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var expired []string
	err := s.db.WithContext(ctx).
		Model(&model.FormEntry{}).
		Where("key = ? AND CAST(value AS INTEGER) < ?", model.EntryTimestamp, cutoff.UnixMilli()).
		Pluck("namespace", &expired).Error
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("namespace IN ?", expired).Delete(&model.FormEntry{}).Error
	})
	if err != nil {
		return 0, err
	}
	return int64(len(expired)), nil
}

func (s *formStore) WithTx(tx *gorm.DB) FormStore {
	return &formStore{db: tx}
}

// sortSummaries orders newest first, then by namespace for stable output.
func sortSummaries(list []FormSummary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SavedAt.Equal(list[j].SavedAt) {
			return list[i].SavedAt.After(list[j].SavedAt)
		}
		return list[i].Namespace < list[j].Namespace
	})
}
