// Package wizard owns the live report document of a form: the two-phase
// state machine, step history, section list management and draft
// persistence on every mutation.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/reportdesk/internal/editor"
	"github.com/verustcode/reportdesk/internal/model"
	"github.com/verustcode/reportdesk/internal/persist"
	"github.com/verustcode/reportdesk/pkg/errors"
	"github.com/verustcode/reportdesk/pkg/idgen"
	"github.com/verustcode/reportdesk/pkg/logger"
)

// Options configures an Assembler.
type Options struct {
	// Autosave routes snapshots through a debounced Autosaver; when false
	// every mutation is written synchronously.
	Autosave   bool
	Debounce   time.Duration
	SavedPulse time.Duration
	// NewID overrides idgen.NewSectionID, for deterministic tests.
	NewID func() string
	// Now overrides time.Now for LastModified.
	Now func() time.Time
	// OnPersist runs after every mutation is handed to storage, with the
	// assembler lock held.
	OnPersist func(*Assembler)
}

// Assembler is the single owner of one form's document. All methods are
// safe for concurrent use; they serialize on an internal mutex.
type Assembler struct {
	mu sync.Mutex

	formID  string
	step    model.Step
	doc     *model.Document
	history *history

	// slotDrafts keeps staged slot-count input per section id between
	// editor instances
	slotDrafts map[string]string

	restored bool
	modified time.Time

	manager   *persist.Manager
	autosaver *persist.Autosaver[persist.Draft]
	newID     func() string
	now       func() time.Time
	onPersist func(*Assembler)
}

// New returns an Assembler with an empty document in CapturingHeader.
// Call Restore once to load a persisted draft.
func New(manager *persist.Manager, opts Options) *Assembler {
	a := &Assembler{
		formID:     manager.Namespace(),
		step:       model.StepCapturingHeader,
		doc:        model.NewDocument(),
		history:    newHistory(model.StepCapturingHeader),
		slotDrafts: make(map[string]string),
		manager:    manager,
		newID:      opts.NewID,
		now:        opts.Now,
		onPersist:  opts.OnPersist,
	}
	if a.newID == nil {
		a.newID = idgen.NewSectionID
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.modified = a.now()
	if opts.Autosave {
		a.autosaver = manager.NewAutosaver(persist.AutosaverOptions{
			Debounce:   opts.Debounce,
			SavedPulse: opts.SavedPulse,
			Name:       a.formID,
		})
	}
	return a
}

// FormID returns the form namespace.
func (a *Assembler) FormID() string {
	return a.formID
}

// Restore loads the persisted draft. Only the first call consults storage;
// later calls return (false, nil). A missing or expired draft leaves the
// fresh empty document in place. Storage failures are returned but the
// Assembler stays usable with the fresh document.
func (a *Assembler) Restore(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.restored {
		return false, nil
	}
	a.restored = true

	step, doc, err := a.manager.Restore(ctx)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDraftNotFound) {
			logger.Debug("No draft to restore", zap.String(logger.FieldFormID, a.formID))
			return false, nil
		}
		logger.Warn("Failed to restore draft", zap.String(logger.FieldFormID, a.formID), zap.Error(err))
		return false, err
	}

	a.step = step
	a.doc = doc
	a.history = newHistory(step)
	if at := a.manager.RestoredAt(); !at.IsZero() {
		a.modified = at
	}
	logger.Info("Draft restored",
		zap.String(logger.FieldFormID, a.formID),
		zap.String("step", string(step)),
		zap.Int("sections", len(doc.Sections)))
	return true, nil
}

// Step returns the current wizard step.
func (a *Assembler) Step() model.Step {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step
}

// Document returns a deep copy of the live document.
func (a *Assembler) Document() *model.Document {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc.Clone()
}

// State is a consistent view of the assembler for one response.
type State struct {
	FormID        string            `json:"form_id"`
	Step          model.Step        `json:"step"`
	Document      *model.Document   `json:"document"`
	Saved         bool              `json:"saved"`
	CanGoBack     bool              `json:"can_go_back"`
	CanGoForward  bool              `json:"can_go_forward"`
	SlotDrafts    map[string]string `json:"slot_drafts,omitempty"`
	MissingHeader []string          `json:"missing_header_fields,omitempty"`
}

// State returns a snapshot of the assembler.
func (a *Assembler) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	drafts := make(map[string]string, len(a.slotDrafts))
	for k, v := range a.slotDrafts {
		drafts[k] = v
	}
	st := State{
		FormID:       a.formID,
		Step:         a.step,
		Document:     a.doc.Clone(),
		Saved:        a.savedLocked(),
		CanGoBack:    a.history.canBack(),
		CanGoForward: a.history.canForward(),
		SlotDrafts:   drafts,
	}
	if a.step == model.StepCapturingHeader {
		st.MissingHeader = model.MissingHeaderFields(a.doc.Header)
	}
	return st
}

// SetHeader replaces the header. It is applied live, with no guard; the
// completeness check happens on Next.
func (a *Assembler) SetHeader(h model.Header) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.editableLocked(); err != nil {
		return err
	}
	if h.LogoImage != "" {
		if err := editor.ValidateImageSource(h.LogoImage); err != nil {
			return err
		}
	}
	a.doc.Header = model.NormalizeHeader(h)
	a.persistLocked()
	return nil
}

// Next moves from CapturingHeader to EditingSections when the header is
// complete. On failure the error lists the missing fields in Details.
func (a *Assembler) Next() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.step != model.StepCapturingHeader {
		return invalidStep("next", a.step)
	}
	if err := headerGuard(a.doc.Header); err != nil {
		return err
	}
	a.doc.TableOfContents = model.DeriveTableOfContents(a.doc.Sections)
	a.transitionLocked(model.StepEditingSections)
	return nil
}

// Back returns from EditingSections to CapturingHeader. Sections are kept.
func (a *Assembler) Back() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.step != model.StepEditingSections {
		return invalidStep("back", a.step)
	}
	a.transitionLocked(model.StepCapturingHeader)
	return nil
}

// HistoryBack moves to the previous step in the history without a guard.
func (a *Assembler) HistoryBack() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.step == model.StepFinalized {
		return finalizedErr()
	}
	step, ok := a.history.back()
	if !ok {
		return errors.New(errors.ErrCodeInvalidStep, "no earlier step in history")
	}
	a.step = step
	a.persistLocked()
	return nil
}

// HistoryForward moves to the next step in the history, re-applying the
// guard of that transition.
func (a *Assembler) HistoryForward() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.step == model.StepFinalized {
		return finalizedErr()
	}
	step, ok := a.history.peekForward()
	if !ok {
		return errors.New(errors.ErrCodeInvalidStep, "no later step in history")
	}
	if step == model.StepEditingSections {
		if err := headerGuard(a.doc.Header); err != nil {
			return err
		}
		a.doc.TableOfContents = model.DeriveTableOfContents(a.doc.Sections)
	}
	a.history.forward()
	a.step = step
	a.persistLocked()
	return nil
}

// AddSection appends a section with fresh content of variant v.
func (a *Assembler) AddSection(title string, v model.Variant) (*model.Section, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.sectionStepLocked(); err != nil {
		return nil, err
	}
	if v == "" {
		v = model.VariantParameterTable
	}
	s, err := model.NewSection(a.newID(), title, v)
	if err != nil {
		return nil, errors.ErrValidation(err.Error())
	}
	a.doc.Sections = append(a.doc.Sections, s)
	a.afterSectionChangeLocked()
	logger.Debug("Section added",
		zap.String(logger.FieldFormID, a.formID),
		zap.String("section_id", s.ID),
		zap.String("variant", string(v)))
	return s.Clone(), nil
}

// RemoveSection deletes the section with id.
func (a *Assembler) RemoveSection(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.sectionStepLocked(); err != nil {
		return err
	}
	i := a.doc.SectionIndex(id)
	if i < 0 {
		return sectionNotFound(id)
	}
	a.doc.Sections = append(a.doc.Sections[:i], a.doc.Sections[i+1:]...)
	delete(a.slotDrafts, id)
	a.afterSectionChangeLocked()
	return nil
}

// MoveSection moves the section with id to position to. Order in the
// section list is the only ordering authority.
func (a *Assembler) MoveSection(id string, to int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.sectionStepLocked(); err != nil {
		return err
	}
	from := a.doc.SectionIndex(id)
	if from < 0 {
		return sectionNotFound(id)
	}
	if to < 0 || to >= len(a.doc.Sections) {
		return errors.ErrIndex("section", to, len(a.doc.Sections))
	}
	s := a.doc.Sections[from]
	rest := append(a.doc.Sections[:from:from], a.doc.Sections[from+1:]...)
	moved := make([]*model.Section, 0, len(a.doc.Sections))
	moved = append(moved, rest[:to]...)
	moved = append(moved, s)
	moved = append(moved, rest[to:]...)
	a.doc.Sections = moved
	a.afterSectionChangeLocked()
	return nil
}

// EditSection runs fn against an editor over a copy of the section and
// commits the copy only when fn succeeds. Staged slot-count input survives
// across calls.
func (a *Assembler) EditSection(id string, fn func(*editor.Editor) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.sectionStepLocked(); err != nil {
		return err
	}
	i := a.doc.SectionIndex(id)
	if i < 0 {
		return sectionNotFound(id)
	}

	ed := editor.New(a.doc.Sections[i].Clone())
	ed.StageSlotCount(a.slotDrafts[id])
	if err := fn(ed); err != nil {
		return err
	}

	a.doc.Sections[i] = ed.Section()
	if draft := ed.StagedSlotCount(); draft != "" {
		a.slotDrafts[id] = draft
	} else {
		delete(a.slotDrafts, id)
	}
	a.afterSectionChangeLocked()
	return nil
}

// ApplyOps applies ops to the section in order; if any fails none is kept.
func (a *Assembler) ApplyOps(id string, ops ...editor.Op) error {
	return a.EditSection(id, func(ed *editor.Editor) error {
		for n, op := range ops {
			if err := op.Apply(ed); err != nil {
				if appErr, ok := errors.AsAppError(err); ok {
					return errors.New(appErr.Code, fmt.Sprintf("operation %d (%s): %s", n, op.Kind, appErr.Message))
				}
				return err
			}
		}
		return nil
	})
}

// Finalize ends the wizard and returns an immutable copy of the document.
// It needs at least one section.
func (a *Assembler) Finalize() (*model.Document, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.step != model.StepEditingSections {
		return nil, invalidStep("finalize", a.step)
	}
	if len(a.doc.Sections) == 0 {
		return nil, errors.New(errors.ErrCodeNoSections, "add at least one section before finalizing")
	}
	a.doc.TableOfContents = model.DeriveTableOfContents(a.doc.Sections)
	a.step = model.StepFinalized
	a.persistLocked()
	logger.Info("Report finalized",
		zap.String(logger.FieldFormID, a.formID),
		zap.Int("sections", len(a.doc.Sections)))
	return a.doc.Clone(), nil
}

// Reset discards the draft and starts over with an empty document.
func (a *Assembler) Reset(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.autosaver != nil {
		a.autosaver.Stop()
		// wait out a write already in flight so it cannot land after Clear
		_ = a.autosaver.Flush(ctx)
	}
	a.step = model.StepCapturingHeader
	a.doc = model.NewDocument()
	a.history = newHistory(model.StepCapturingHeader)
	a.slotDrafts = make(map[string]string)
	a.modified = a.now()
	return a.manager.Clear(ctx)
}

// LastModified returns when the document last changed, or when its restored
// draft was written.
func (a *Assembler) LastModified() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.modified
}

// Saved reports whether an autosave completed within the saved pulse.
func (a *Assembler) Saved() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.savedLocked()
}

// Flush writes any pending autosave now.
func (a *Assembler) Flush(ctx context.Context) error {
	if a.autosaver == nil {
		return nil
	}
	return a.autosaver.Flush(ctx)
}

// Close flushes the pending autosave and stops the autosaver.
func (a *Assembler) Close(ctx context.Context) error {
	if a.autosaver == nil {
		return nil
	}
	err := a.autosaver.Flush(ctx)
	a.autosaver.Stop()
	return err
}

func (a *Assembler) savedLocked() bool {
	return a.autosaver != nil && a.autosaver.Saved()
}

// transitionLocked sets the step and records it in the history.
func (a *Assembler) transitionLocked(step model.Step) {
	a.step = step
	a.history.push(step)
	a.persistLocked()
	logger.Debug("Wizard step changed",
		zap.String(logger.FieldFormID, a.formID),
		zap.String("step", string(step)))
}

func (a *Assembler) afterSectionChangeLocked() {
	a.doc.TableOfContents = model.DeriveTableOfContents(a.doc.Sections)
	a.persistLocked()
}

// persistLocked snapshots the current state. Storage errors are logged and
// never surface to the caller; the in-memory document stays authoritative.
func (a *Assembler) persistLocked() {
	a.modified = a.now()
	if a.onPersist != nil {
		defer a.onPersist(a)
	}
	if a.autosaver != nil {
		a.autosaver.Schedule(persist.Draft{Step: a.step, Document: a.doc.Clone()})
		return
	}
	if err := a.manager.Snapshot(context.Background(), a.step, a.doc); err != nil {
		logger.Warn("Draft snapshot failed", zap.String(logger.FieldFormID, a.formID), zap.Error(err))
	}
}

func (a *Assembler) editableLocked() error {
	if a.step == model.StepFinalized {
		return finalizedErr()
	}
	return nil
}

func (a *Assembler) sectionStepLocked() error {
	switch a.step {
	case model.StepEditingSections:
		return nil
	case model.StepFinalized:
		return finalizedErr()
	default:
		return errors.New(errors.ErrCodeInvalidStep, "sections can only be edited after the header step")
	}
}

func headerGuard(h model.Header) error {
	missing := model.MissingHeaderFields(h)
	if len(missing) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeHeaderIncomplete, "header is incomplete").WithDetails(missing)
}

func invalidStep(action string, step model.Step) error {
	if step == model.StepFinalized {
		return finalizedErr()
	}
	return errors.New(errors.ErrCodeInvalidStep, fmt.Sprintf("cannot %s from %s", action, step))
}

func finalizedErr() error {
	return errors.New(errors.ErrCodeFinalized, "report is finalized; reset to start a new one")
}

func sectionNotFound(id string) error {
	return errors.New(errors.ErrCodeSectionNotFound, fmt.Sprintf("section %s not found", id))
}
