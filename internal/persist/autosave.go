package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

// Autosave defaults.
const (
	DefaultDebounce   = 800 * time.Millisecond
	DefaultSavedPulse = 2 * time.Second
)

// SaveFunc writes one payload.
type SaveFunc[T any] func(ctx context.Context, v T) error

// AutosaverOptions configures an Autosaver. Zero values take the defaults.
type AutosaverOptions struct {
	Debounce   time.Duration
	SavedPulse time.Duration
	// Name tags log lines, usually the form id
	Name string
	// Now replaces time.Now for the saved pulse
	Now func() time.Time
}

// Autosaver coalesces bursts of Schedule calls into one write after a quiet
// period. The last scheduled value wins and flushes never overlap.
type Autosaver[T any] struct {
	save  SaveFunc[T]
	opts  AutosaverOptions
	flush sync.Mutex // serializes writes

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64 // Schedule count; a timer only flushes its own generation
	pending    T
	hasPending bool
	savedAt    time.Time
	lastErr    error
}

// NewAutosaver returns an Autosaver that writes through save.
func NewAutosaver[T any](save SaveFunc[T], opts AutosaverOptions) *Autosaver[T] {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SavedPulse <= 0 {
		opts.SavedPulse = DefaultSavedPulse
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Autosaver[T]{save: save, opts: opts}
}

// Schedule replaces the pending payload with v and restarts the quiet period.
func (a *Autosaver[T]) Schedule(v T) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.pending = v
	a.hasPending = true
	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.opts.Debounce, func() {
		if err := a.write(context.Background(), gen); err != nil {
			logger.Warn("Autosave failed",
				zap.String(logger.FieldFormID, a.opts.Name),
				zap.Error(err))
		}
	})
}

// Pending reports whether a payload is waiting for its write.
func (a *Autosaver[T]) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hasPending
}

// Flush writes the pending payload now, if any.
func (a *Autosaver[T]) Flush(ctx context.Context) error {
	return a.write(ctx, 0)
}

// write flushes the pending payload. A non-zero gen is the Schedule call
// whose timer fired; when a later Schedule replaced the payload while the
// callback waited for the flush lock, the write is left to the newer timer.
func (a *Autosaver[T]) write(ctx context.Context, gen uint64) error {
	a.flush.Lock()
	defer a.flush.Unlock()

	a.mu.Lock()
	if !a.hasPending || (gen != 0 && gen != a.gen) {
		a.mu.Unlock()
		return nil
	}
	v := a.pending
	var zero T
	a.pending = zero
	a.hasPending = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.mu.Unlock()

	err := a.save(ctx, v)
	telemetry.GetMetrics().RecordAutosaveFlush(ctx, err == nil)

	a.mu.Lock()
	a.lastErr = err
	if err == nil {
		a.savedAt = a.opts.Now()
	}
	a.mu.Unlock()
	return err
}

// Stop cancels the pending write and drops its payload. The Autosaver stays
// usable; a later Schedule starts a new quiet period.
func (a *Autosaver[T]) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	var zero T
	a.pending = zero
	a.hasPending = false
}

// Saved reports whether the last successful flush happened within the saved
// pulse window.
func (a *Autosaver[T]) Saved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.savedAt.IsZero() {
		return false
	}
	return a.opts.Now().Sub(a.savedAt) < a.opts.SavedPulse
}

// LastSavedAt returns the time of the last successful flush.
func (a *Autosaver[T]) LastSavedAt() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.savedAt
}

// LastError returns the error of the most recent flush, nil when it succeeded.
func (a *Autosaver[T]) LastError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}
