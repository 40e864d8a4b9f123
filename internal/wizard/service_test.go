package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/persist"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
)

func TestService_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := NewService(persist.NewMemoryStorage(), ServiceConfig{})

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	assert.True(t, idgen.IsValidID(a.FormID()))

	got, err := svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, 1, svc.Len())
}

func TestService_GetInvalidID(t *testing.T) {
	svc := NewService(persist.NewMemoryStorage(), ServiceConfig{})
	_, err := svc.Get(context.Background(), "../etc/passwd")
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Equal(t, 0, svc.Len())
}

func TestService_GetRestoresDraft(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()

	first := NewService(storage, ServiceConfig{})
	a, err := first.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))
	require.NoError(t, a.Next())
	_, err = a.AddSection("Scope", model.VariantNarrative)
	require.NoError(t, err)

	second := NewService(storage, ServiceConfig{})
	b, err := second.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Equal(t, model.StepEditingSections, b.Step())
	assert.Equal(t, []string{"Scope"}, b.Document().TableOfContents)
}

func TestService_ExpiredDraftStartsFresh(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	first := NewService(storage, ServiceConfig{Now: clock})
	a, err := first.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))

	now = now.Add(25 * time.Hour)
	second := NewService(storage, ServiceConfig{Now: clock})
	b, err := second.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Equal(t, "", b.Document().Header.Title)
	assert.Empty(t, storage.Keys(a.FormID()))
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	svc := NewService(storage, ServiceConfig{})

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))
	require.NotEmpty(t, storage.Keys(a.FormID()))

	require.NoError(t, svc.Delete(ctx, a.FormID()))
	assert.Empty(t, storage.Keys(a.FormID()))
	_, ok := svc.Lookup(a.FormID())
	assert.False(t, ok)
}

func TestService_CloseFlushesAutosave(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	svc := NewService(storage, ServiceConfig{Autosave: true, Debounce: time.Hour})

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))
	assert.Empty(t, storage.Keys(a.FormID()))

	require.NoError(t, svc.Close(ctx))
	assert.NotEmpty(t, storage.Keys(a.FormID()))
}

func TestService_Evict(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	svc := NewService(storage, ServiceConfig{Autosave: true, Debounce: time.Hour})

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))

	require.NoError(t, svc.Evict(ctx, a.FormID()))
	assert.Equal(t, 0, svc.Len())
	assert.NotEmpty(t, storage.Keys(a.FormID()))
}

func TestService_IdleFormExpires(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(storage, ServiceConfig{Now: func() time.Time { return now }})

	a, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))

	now = now.Add(23 * time.Hour)
	got, err := svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Same(t, a, got, "within the TTL the loaded form is served")

	now = now.Add(2 * time.Hour)
	got, err = svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.NotSame(t, a, got)
	assert.Equal(t, "", got.Document().Header.Title)
	assert.Equal(t, model.StepCapturingHeader, got.Step())
	assert.Empty(t, storage.Keys(a.FormID()), "expired draft is purged")
	assert.Equal(t, 0, svc.Len())

	// writing the fresh form does not bring the old document back
	require.NoError(t, got.SetHeader(model.Header{Title: "Retry"}))
	again, err := svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Same(t, got, again)
	assert.Equal(t, "Retry", again.Document().Header.Title)
}

func TestService_RestoredFormKeepsDraftAge(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	a, err := NewService(storage, ServiceConfig{Now: clock}).Create(ctx)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))

	now = now.Add(20 * time.Hour)
	svc := NewService(storage, ServiceConfig{Now: clock})
	b, err := svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Equal(t, "Audit", b.Document().Header.Title)
	assert.WithinDuration(t, now.Add(-20*time.Hour), b.LastModified(), 0)

	// the draft was written 25h ago even though it was loaded 5h ago
	now = now.Add(5 * time.Hour)
	c, err := svc.Get(ctx, a.FormID())
	require.NoError(t, err)
	assert.Equal(t, "", c.Document().Header.Title)
}

func TestService_UnknownIDsAreNotKept(t *testing.T) {
	ctx := context.Background()
	svc := NewService(persist.NewMemoryStorage(), ServiceConfig{})

	for i := 0; i < 1000; i++ {
		a, err := svc.Get(ctx, idgen.NewFormID())
		require.NoError(t, err)
		assert.Equal(t, model.StepCapturingHeader, a.Step())
	}
	assert.Equal(t, 0, svc.Len())

	id := idgen.NewFormID()
	a, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))
	assert.Equal(t, 1, svc.Len(), "first write registers the form")

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, a, got)
}

func TestService_UnknownIDWithAutosave(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	svc := NewService(storage, ServiceConfig{Autosave: true, Debounce: time.Hour})
	defer svc.Close(ctx)

	id := idgen.NewFormID()
	a, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.NoError(t, a.SetHeader(completeHeader()))
	assert.Empty(t, storage.Keys(id), "write still pending")

	got, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Same(t, a, got, "a pending write is not lost to a second restore")
}

func TestService_EvictExpired(t *testing.T) {
	ctx := context.Background()
	storage := persist.NewMemoryStorage()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(storage, ServiceConfig{Now: func() time.Time { return now }})

	stale, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, stale.SetHeader(completeHeader()))
	live, err := svc.Create(ctx)
	require.NoError(t, err)

	now = now.Add(20 * time.Hour)
	require.NoError(t, live.SetHeader(completeHeader()))

	now = now.Add(5 * time.Hour)
	assert.Equal(t, 1, svc.EvictExpired(ctx, now.Add(-24*time.Hour)))

	_, ok := svc.Lookup(stale.FormID())
	assert.False(t, ok)
	assert.Empty(t, storage.Keys(stale.FormID()))
	_, ok = svc.Lookup(live.FormID())
	assert.True(t, ok)
	assert.NotEmpty(t, storage.Keys(live.FormID()))
}
