package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/persist"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	TTL        time.Duration
	Autosave   bool
	Debounce   time.Duration
	SavedPulse time.Duration
	// Now overrides the draft clock, for tests
	Now func() time.Time
}

// Service keeps one Assembler per form id over a shared Storage. Forms
// are loaded lazily and restored from their draft on first access. A form
// joins the registry when it is created, restored or first written, and
// leaves it once it sat unmodified for longer than the TTL.
type Service struct {
	storage persist.Storage
	cfg     ServiceConfig

	mu    sync.Mutex
	forms map[string]*Assembler
}

// NewService returns a Service backed by storage.
func NewService(storage persist.Storage, cfg ServiceConfig) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = persist.DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		storage: storage,
		cfg:     cfg,
		forms:   make(map[string]*Assembler),
	}
}

// Create starts a new form with a fresh id.
func (s *Service) Create(ctx context.Context) (*Assembler, error) {
	id := idgen.NewFormID()
	a := s.newAssembler(id)
	// nothing to restore for a fresh id; mark it so Get does not try
	a.restored = true
	s.register(a)

	logger.Info("Form created", zap.String(logger.FieldFormID, id))
	return a, nil
}

// Get returns the assembler for formID, restoring its draft on first
// access. An unknown id with no stored draft yields a fresh form that is
// only kept once it is written. A loaded form idle past the TTL is
// discarded with its draft and replaced by a fresh one.
func (s *Service) Get(ctx context.Context, formID string) (*Assembler, error) {
	if !idgen.IsValidID(formID) {
		return nil, errors.ErrValidation(fmt.Sprintf("invalid form id %q", formID))
	}

	s.mu.Lock()
	a, ok := s.forms[formID]
	s.mu.Unlock()
	if ok {
		if !s.expired(a, s.cfg.Now().Add(-s.cfg.TTL)) {
			return a, nil
		}
		s.discard(ctx, a)
	}

	a = s.newAssembler(formID)
	restored, err := a.Restore(ctx)
	if err != nil {
		// the fresh document stays usable; the caller decides whether to surface this
		return a, err
	}
	if restored {
		return s.register(a), nil
	}
	return a, nil
}

// Lookup returns a loaded assembler without touching storage.
func (s *Service) Lookup(formID string) (*Assembler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.forms[formID]
	return a, ok
}

// Delete discards a form and its stored draft.
func (s *Service) Delete(ctx context.Context, formID string) error {
	if !idgen.IsValidID(formID) {
		return errors.ErrValidation(fmt.Sprintf("invalid form id %q", formID))
	}

	s.mu.Lock()
	a, ok := s.forms[formID]
	delete(s.forms, formID)
	s.mu.Unlock()

	if ok {
		return a.Reset(ctx)
	}
	return persist.NewManager(s.storage, formID).Clear(ctx)
}

// Evict drops a loaded form from memory after flushing it. The draft
// stays in storage.
func (s *Service) Evict(ctx context.Context, formID string) error {
	s.mu.Lock()
	a, ok := s.forms[formID]
	delete(s.forms, formID)
	s.mu.Unlock()

	if !ok {
		return nil
	}
	return a.Close(ctx)
}

// EvictExpired discards every loaded form last modified before cutoff,
// together with its draft. It returns the number of forms removed.
func (s *Service) EvictExpired(ctx context.Context, cutoff time.Time) int {
	s.mu.Lock()
	forms := make([]*Assembler, 0, len(s.forms))
	for _, a := range s.forms {
		forms = append(forms, a)
	}
	s.mu.Unlock()

	evicted := 0
	for _, a := range forms {
		if s.expired(a, cutoff) {
			s.discard(ctx, a)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of loaded forms.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// Close flushes every loaded form. It returns the first flush error.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	forms := make([]*Assembler, 0, len(s.forms))
	for _, a := range s.forms {
		forms = append(forms, a)
	}
	s.mu.Unlock()

	var firstErr error
	for _, a := range forms {
		if err := a.Close(ctx); err != nil {
			logger.Warn("Failed to flush draft on shutdown", zap.String(logger.FieldFormID, a.FormID()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Service) newAssembler(formID string) *Assembler {
	manager := persist.NewManager(s.storage, formID,
		persist.WithTTL(s.cfg.TTL),
		persist.WithClock(s.cfg.Now))
	return New(manager, Options{
		Autosave:   s.cfg.Autosave,
		Debounce:   s.cfg.Debounce,
		SavedPulse: s.cfg.SavedPulse,
		Now:        s.cfg.Now,
		OnPersist:  func(a *Assembler) { s.register(a) },
	})
}

// register adds a to the registry unless its id is already taken, and
// returns the registered assembler.
func (s *Service) register(a *Assembler) *Assembler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.forms[a.formID]; ok {
		return existing
	}
	s.forms[a.formID] = a
	return a
}

func (s *Service) expired(a *Assembler, cutoff time.Time) bool {
	return a.LastModified().Before(cutoff)
}

// discard unregisters a, drops its pending autosave and purges its draft.
func (s *Service) discard(ctx context.Context, a *Assembler) {
	s.mu.Lock()
	if s.forms[a.formID] == a {
		delete(s.forms, a.formID)
	}
	s.mu.Unlock()

	if err := a.Reset(ctx); err != nil {
		logger.Warn("Failed to purge idle form", zap.String(logger.FieldFormID, a.formID), zap.Error(err))
		return
	}
	logger.Info("Idle form discarded", zap.String(logger.FieldFormID, a.formID))
}
