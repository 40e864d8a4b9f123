package persist

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

// DefaultTTL is how long a draft stays restorable after its last write.
const DefaultTTL = 24 * time.Hour

// lastSavedLayout is the ISO-8601 layout of the _lastSaved field.
const lastSavedLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotFound is returned by Restore when there is no live draft.
var ErrNotFound = errors.New(errors.ErrCodeDraftNotFound, "no saved draft")

// draftData is the encoded form of the data entry. LastSaved is only set on
// the autosave path.
type draftData struct {
	*model.Document
	LastSaved string `json:"_lastSaved,omitempty"`
}

// Manager snapshots and restores one form's draft.
type Manager struct {
	storage   Storage
	namespace string
	ttl       time.Duration
	now       func() time.Time

	// restoredAt is the write time of the draft the last Restore returned
	restoredAt time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides DefaultTTL. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests that need to travel in time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager returns a Manager for the form namespace.
func NewManager(storage Storage, namespace string, opts ...Option) *Manager {
	m := &Manager{
		storage:   storage,
		namespace: namespace,
		ttl:       DefaultTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Namespace returns the form id the manager writes under.
func (m *Manager) Namespace() string {
	return m.namespace
}

// TTL returns the configured draft lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// RestoredAt returns when the draft loaded by the last successful Restore
// was written; zero before that.
func (m *Manager) RestoredAt() time.Time {
	return m.restoredAt
}

// Snapshot overwrites the stored draft with step and doc.
func (m *Manager) Snapshot(ctx context.Context, step model.Step, doc *model.Document) error {
	return m.write(ctx, step, draftData{Document: doc})
}

// SaveDraft is the autosave write: like Snapshot, with a _lastSaved stamp
// added to the data entry.
func (m *Manager) SaveDraft(ctx context.Context, step model.Step, doc *model.Document) error {
	return m.write(ctx, step, draftData{
		Document:  doc,
		LastSaved: m.now().UTC().Format(lastSavedLayout),
	})
}

func (m *Manager) write(ctx context.Context, step model.Step, data draftData) error {
	if data.Document == nil {
		data.Document = model.NewDocument()
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to encode draft", err)
	}

	entries := map[string]string{
		model.EntryStep:      string(step),
		model.EntryData:      string(encoded),
		model.EntryTimestamp: strconv.FormatInt(m.now().UnixMilli(), 10),
	}
	if err := m.storage.Set(ctx, m.namespace, entries); err != nil {
		logger.Warn("Failed to persist draft",
			zap.String(logger.FieldFormID, m.namespace),
			zap.Error(err))
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to persist draft", err)
	}
	return nil
}

// Restore returns the stored step and document. It returns ErrNotFound when
// nothing is stored, and also when the draft is older than the TTL, in which
// case the namespace is purged first.
func (m *Manager) Restore(ctx context.Context) (model.Step, *model.Document, error) {
	metrics := telemetry.GetMetrics()

	rawTS, ok, err := m.storage.Get(ctx, m.namespace, model.EntryTimestamp)
	if err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeStorageRead, "failed to read draft timestamp", err)
	}
	if !ok {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeNone)
		return "", nil, ErrNotFound
	}

	savedAt, perr := strconv.ParseInt(rawTS, 10, 64)
	if perr != nil || m.now().Sub(time.UnixMilli(savedAt)) > m.ttl {
		logger.Info("Discarding expired draft",
			zap.String(logger.FieldFormID, m.namespace),
			zap.String("timestamp", rawTS))
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeExpired)
		if err := m.storage.DeleteNamespace(ctx, m.namespace); err != nil {
			logger.Warn("Failed to purge expired draft",
				zap.String(logger.FieldFormID, m.namespace),
				zap.Error(err))
		}
		return "", nil, ErrNotFound
	}

	rawStep, stepOK, err := m.storage.Get(ctx, m.namespace, model.EntryStep)
	if err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeStorageRead, "failed to read draft step", err)
	}
	rawData, dataOK, err := m.storage.Get(ctx, m.namespace, model.EntryData)
	if err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeStorageRead, "failed to read draft data", err)
	}
	if !stepOK || !dataOK {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeNone)
		return "", nil, ErrNotFound
	}

	step, err := model.ParseStep(rawStep)
	if err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeDraftCorrupted, "stored draft step is invalid", err)
	}
	var data draftData
	if err := json.Unmarshal([]byte(rawData), &data); err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeDraftCorrupted, "stored draft data is invalid", err)
	}
	doc := data.Document
	if doc == nil {
		doc = model.NewDocument()
	}
	if doc.Sections == nil {
		doc.Sections = []*model.Section{}
	}
	// editors index table cells directly; a draft that breaks the table
	// shape must not reach them
	if err := model.ValidateDocument(doc); err != nil {
		metrics.RecordRestore(ctx, telemetry.RestoreOutcomeError)
		return "", nil, errors.Wrap(errors.ErrCodeDraftCorrupted, "stored draft document is invalid", err)
	}
	doc.TableOfContents = model.DeriveTableOfContents(doc.Sections)

	m.restoredAt = time.UnixMilli(savedAt)
	metrics.RecordRestore(ctx, telemetry.RestoreOutcomeRestored)
	return step, doc, nil
}

// Draft is the autosave payload: a step and a document copy.
type Draft struct {
	Step     model.Step
	Document *model.Document
}

// NewAutosaver returns an Autosaver that writes drafts through SaveDraft.
// opts.Name defaults to the namespace.
func (m *Manager) NewAutosaver(opts AutosaverOptions) *Autosaver[Draft] {
	if opts.Name == "" {
		opts.Name = m.namespace
	}
	return NewAutosaver(func(ctx context.Context, d Draft) error {
		return m.SaveDraft(ctx, d.Step, d.Document)
	}, opts)
}

// Clear removes the stored draft.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.storage.DeleteNamespace(ctx, m.namespace); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWrite, "failed to clear draft", err)
	}
	return nil
}
