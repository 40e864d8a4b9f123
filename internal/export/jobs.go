package export

import (
	"sync"
	"time"

	"github.com/verustcode/reportdesk/pkg/errors"
)

// JobState is the export state of one form.
type JobState string

const (
	JobIdle      JobState = "idle"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is a snapshot of the last or current export of a form.
type JobStatus struct {
	FormID     string     `json:"form_id"`
	State      JobState   `json:"state"`
	Page       int        `json:"page"`
	Pages      int        `json:"pages"`
	Filename   string     `json:"filename,omitempty"`
	ErrorCode  string     `json:"error_code,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Jobs tracks export progress per form and admits one running export per
// form at a time.
type Jobs struct {
	mu   sync.Mutex
	jobs map[string]*JobStatus
	now  func() time.Time
}

// NewJobs returns an empty registry.
func NewJobs() *Jobs {
	return &Jobs{jobs: make(map[string]*JobStatus), now: time.Now}
}

// Status returns the export status of formID; idle when it never exported.
func (j *Jobs) Status(formID string) JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s, ok := j.jobs[formID]; ok {
		return *s
	}
	return JobStatus{FormID: formID, State: JobIdle}
}

// Running reports whether formID has an export in progress.
func (j *Jobs) Running(formID string) bool {
	return j.Status(formID).State == JobRunning
}

// Forget drops the status of formID unless an export is running.
func (j *Jobs) Forget(formID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s, ok := j.jobs[formID]; ok && s.State != JobRunning {
		delete(j.jobs, formID)
	}
}

func (j *Jobs) begin(formID string, pages int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s, ok := j.jobs[formID]; ok && s.State == JobRunning {
		return errors.New(errors.ErrCodeExportRunning, "an export is already running for this form").
			WithDetails(map[string]int{"page": s.Page, "pages": s.Pages})
	}
	started := j.now()
	j.jobs[formID] = &JobStatus{FormID: formID, State: JobRunning, Pages: pages, StartedAt: &started}
	return nil
}

func (j *Jobs) progress(formID string, page int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if s, ok := j.jobs[formID]; ok {
		s.Page = page
	}
}

func (j *Jobs) finish(formID, filename string, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	s, ok := j.jobs[formID]
	if !ok {
		return
	}
	finished := j.now()
	s.FinishedAt = &finished
	if err != nil {
		s.State = JobFailed
		s.Error = err.Error()
		if appErr, ok := errors.AsAppError(err); ok {
			s.ErrorCode = string(appErr.Code)
		}
		return
	}
	s.State = JobCompleted
	s.Filename = filename
}
