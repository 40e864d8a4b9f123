package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/pkg/errors"
)

// clock is a settable time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func sampleDocument(t *testing.T) *model.Document {
	t.Helper()
	doc := model.NewDocument()
	doc.Header = model.Header{
		Title:           "Audit",
		Subtitle:        "Q1",
		PreparedForName: "Acme",
		PreparedByName:  "Co",
		IssueDate:       "2026-01-01",
	}
	s, err := model.NewSection("s1", "Scope", model.VariantParameterTable)
	require.NoError(t, err)
	doc.Sections = append(doc.Sections, s)
	doc.TableOfContents = model.DeriveTableOfContents(doc.Sections)
	return doc
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1")

	doc := sampleDocument(t)
	require.NoError(t, m.Snapshot(ctx, model.StepEditingSections, doc))
	assert.Equal(t, []string{model.EntryData, model.EntryStep, model.EntryTimestamp}, storage.Keys("form-1"))

	step, got, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StepEditingSections, step)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("restored document mismatch (-want +got):\n%s", diff)
	}
}

func TestSnapshot_Overwrites(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStorage(), "form-1")

	require.NoError(t, m.Snapshot(ctx, model.StepCapturingHeader, model.NewDocument()))
	doc := sampleDocument(t)
	require.NoError(t, m.Snapshot(ctx, model.StepEditingSections, doc))

	step, got, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StepEditingSections, step)
	assert.Len(t, got.Sections, 1)
}

func TestRestore_NothingStored(t *testing.T) {
	m := NewManager(NewMemoryStorage(), "empty")
	_, _, err := m.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDraftNotFound))
}

// TestRestore_Expired tests that a restore 25 hours after the last write
// returns not found and purges the namespace
func TestRestore_Expired(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1", WithClock(c.Now))

	require.NoError(t, m.Snapshot(ctx, model.StepEditingSections, sampleDocument(t)))

	c.Advance(25 * time.Hour)
	_, _, err := m.Restore(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, storage.Keys("form-1"), "expired namespace must be purged")
}

func TestRestore_WithinTTL(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	m := NewManager(NewMemoryStorage(), "form-1", WithClock(c.Now))

	require.NoError(t, m.Snapshot(ctx, model.StepCapturingHeader, sampleDocument(t)))
	c.Advance(23 * time.Hour)

	step, _, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StepCapturingHeader, step)
}

func TestRestore_CustomTTL(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	m := NewManager(NewMemoryStorage(), "form-1", WithClock(c.Now), WithTTL(time.Hour))
	assert.Equal(t, time.Hour, m.TTL())

	require.NoError(t, m.Snapshot(ctx, model.StepCapturingHeader, model.NewDocument()))
	c.Advance(61 * time.Minute)
	_, _, err := m.Restore(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestore_Corrupted(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1", WithClock(c.Now))

	ts := fmt.Sprint(c.Now().UnixMilli())
	require.NoError(t, storage.Set(ctx, "form-1", map[string]string{
		model.EntryStep:      "Reviewing",
		model.EntryData:      "{}",
		model.EntryTimestamp: ts,
	}))
	_, _, err := m.Restore(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDraftCorrupted))

	require.NoError(t, storage.Set(ctx, "form-1", map[string]string{
		model.EntryStep: string(model.StepCapturingHeader),
		model.EntryData: "{not json",
	}))
	_, _, err = m.Restore(ctx)
	assert.True(t, errors.HasCode(err, errors.ErrCodeDraftCorrupted))
}

func TestRestore_InvalidDocument(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1", WithClock(c.Now))
	ts := fmt.Sprint(c.Now().UnixMilli())

	tests := []struct {
		name string
		data string
	}{
		{
			name: "short custom table row",
			data: `{"header":{},"sections":[{"id":"s1","title":"Grid","variant":"custom_table",
				"content":{"column_count":2,"column_headers":["A","B"],"rows":[["x"]]}}]}`,
		},
		{
			name: "duplicate section ids",
			data: `{"header":{},"sections":[
				{"id":"s1","title":"A","variant":"narrative","content":{"text":""}},
				{"id":"s1","title":"B","variant":"narrative","content":{"text":""}}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, storage.Set(ctx, "form-1", map[string]string{
				model.EntryStep:      string(model.StepEditingSections),
				model.EntryData:      tt.data,
				model.EntryTimestamp: ts,
			}))
			_, doc, err := m.Restore(ctx)
			assert.Nil(t, doc)
			assert.True(t, errors.HasCode(err, errors.ErrCodeDraftCorrupted), "got %v", err)
		})
	}
}

func TestRestore_UnparsableTimestampIsStale(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1")

	require.NoError(t, storage.Set(ctx, "form-1", map[string]string{
		model.EntryStep:      string(model.StepCapturingHeader),
		model.EntryData:      "{}",
		model.EntryTimestamp: "yesterday",
	}))
	_, _, err := m.Restore(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, storage.Keys("form-1"))
}

func TestSaveDraft_AddsLastSaved(t *testing.T) {
	ctx := context.Background()
	c := newClock()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1", WithClock(c.Now))

	require.NoError(t, m.SaveDraft(ctx, model.StepEditingSections, sampleDocument(t)))
	raw, ok, err := storage.Get(ctx, "form-1", model.EntryData)
	require.NoError(t, err)
	require.True(t, ok)

	var fields map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &fields))
	assert.Equal(t, "2026-03-01T09:00:00.000Z", fields["_lastSaved"])

	// The restored document ignores the stamp
	_, doc, err := m.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Audit", doc.Header.Title)

	// A direct snapshot does not carry it
	require.NoError(t, m.Snapshot(ctx, model.StepEditingSections, sampleDocument(t)))
	raw, _, _ = storage.Get(ctx, "form-1", model.EntryData)
	assert.NotContains(t, raw, "_lastSaved")
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	m := NewManager(storage, "form-1")
	other := NewManager(storage, "form-2")

	require.NoError(t, m.Snapshot(ctx, model.StepCapturingHeader, model.NewDocument()))
	require.NoError(t, other.Snapshot(ctx, model.StepCapturingHeader, model.NewDocument()))

	require.NoError(t, m.Clear(ctx))
	_, _, err := m.Restore(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = other.Restore(ctx)
	assert.NoError(t, err, "namespaces are independent")
}

// failingStorage fails every write.
type failingStorage struct{ *MemoryStorage }

func (failingStorage) Set(context.Context, string, map[string]string) error {
	return fmt.Errorf("disk full")
}

func TestSnapshot_StorageError(t *testing.T) {
	m := NewManager(failingStorage{NewMemoryStorage()}, "form-1")
	err := m.Snapshot(context.Background(), model.StepCapturingHeader, model.NewDocument())
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageWrite))
	assert.ErrorContains(t, err, "disk full")
}
