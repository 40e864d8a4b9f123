package store

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/pkg/logger"
	"github.com/verustcode/reportdesk/pkg/telemetry"
)

const (
	// DefaultPurgeSchedule is the cron schedule of the expired draft sweep
	DefaultPurgeSchedule = "@every 1h"
	// DefaultFormLogRetention is how long form logs outlive their draft
	DefaultFormLogRetention = 7 * 24 * time.Hour
)

// Evictor drops loaded forms last modified before cutoff and returns how
// many it removed.
type Evictor func(ctx context.Context, cutoff time.Time) int

// FormCleanupService periodically removes drafts older than the TTL, and
// form logs older than the log retention.
type FormCleanupService struct {
	forms    FormStore
	logs     FormLogStore // optional
	evict    Evictor      // optional
	cron     *cron.Cron
	schedule string
	ttl      time.Duration
	logTTL   time.Duration
	now      func() time.Time
	entryID  cron.EntryID
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewFormCleanupService creates a cleanup service. logs may be nil.
func NewFormCleanupService(forms FormStore, logs FormLogStore, schedule string, ttl time.Duration) *FormCleanupService {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	return &FormCleanupService{
		forms:    forms,
		logs:     logs,
		cron:     cron.New(),
		schedule: schedule,
		ttl:      ttl,
		logTTL:   DefaultFormLogRetention,
		now:      time.Now,
	}
}

// Start schedules the sweep and runs one immediately in the background.
func (s *FormCleanupService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID, err := s.cron.AddFunc(s.schedule, func() { s.Cleanup(context.Background()) })
	if err != nil {
		logger.Error("Failed to schedule draft purge", zap.String("schedule", s.schedule), zap.Error(err))
		return err
	}
	s.entryID = entryID
	s.cron.Start()

	logger.Info("Draft purge service started",
		zap.String("schedule", s.schedule),
		zap.Duration("ttl", s.ttl),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Cleanup(context.Background())
	}()
	return nil
}

// Stop stops the scheduler and waits for running sweeps.
func (s *FormCleanupService) Stop() {
	logger.Info("Stopping draft purge service")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
}

// Cleanup runs one sweep and returns the number of drafts removed.
func (s *FormCleanupService) Cleanup(ctx context.Context) int64 {
	s.mu.RLock()
	ttl, logTTL, now, evict := s.ttl, s.logTTL, s.now(), s.evict
	s.mu.RUnlock()

	start := time.Now()
	// loaded forms go first so none of them writes an expired draft back
	if evict != nil {
		if n := evict(ctx, now.Add(-ttl)); n > 0 {
			logger.Info("Evicted idle forms", zap.Int("evicted_count", n))
		}
	}
	removed, err := s.forms.DeleteExpired(ctx, now.Add(-ttl))
	if err != nil {
		logger.Error("Failed to purge expired drafts", zap.Duration("ttl", ttl), zap.Error(err))
		return 0
	}
	telemetry.GetMetrics().RecordDraftsPurged(ctx, removed)

	if s.logs != nil {
		if n, err := s.logs.DeleteOlderThan(ctx, now.Add(-logTTL)); err != nil {
			logger.Warn("Failed to purge old form logs", zap.Error(err))
		} else if n > 0 {
			logger.Debug("Purged old form logs", zap.Int64("deleted_count", n))
		}
	}

	logger.Info("Draft purge completed",
		zap.Int64("deleted_count", removed),
		zap.Duration("duration", time.Since(start)),
	)
	return removed
}

// SetEvictor registers the in-memory side of the sweep.
func (s *FormCleanupService) SetEvictor(fn Evictor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict = fn
}

// SetTTL updates the draft lifetime (takes effect on next sweep)
func (s *FormCleanupService) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

// SetLogRetention updates the form log retention (takes effect on next sweep)
func (s *FormCleanupService) SetLogRetention(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.logTTL = d
	}
}
