package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	// FieldFormID is the field key that ties a log entry to a wizard draft
	FieldFormID = "form_id"

	hookBufferSize    = 100
	hookFlushInterval = 5 * time.Second
)

// FormLogRecord is one captured entry for a draft.
type FormLogRecord struct {
	Time    time.Time
	FormID  string
	Level   string
	Message string
	Caller  string
	Fields  map[string]interface{}
}

// FormLogWriter persists captured records.
// It keeps the logger package independent of the database packages.
type FormLogWriter interface {
	Write(records []FormLogRecord) error
}

// FormLogHook buffers entries carrying a form_id field and writes them in
// batches, either when the buffer fills or on a periodic tick.
type FormLogHook struct {
	writer FormLogWriter

	mu     sync.Mutex
	buffer []FormLogRecord

	stopCh  chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewFormLogHook starts the background flusher for writer.
func NewFormLogHook(writer FormLogWriter) *FormLogHook {
	h := &FormLogHook{
		writer: writer,
		buffer: make([]FormLogRecord, 0, hookBufferSize),
		stopCh: make(chan struct{}),
	}
	h.wg.Add(1)
	go h.loop()
	return h
}

// WrapCore wraps core so that form entries are captured after being written.
func (h *FormLogHook) WrapCore(core zapcore.Core) zapcore.Core {
	return &formLogCore{Core: core, hook: h}
}

type formLogCore struct {
	zapcore.Core
	hook   *FormLogHook
	fields []zapcore.Field
}

func (c *formLogCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &formLogCore{Core: c.Core.With(fields), hook: c.hook, fields: merged}
}

func (c *formLogCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *formLogCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if err := c.Core.Write(entry, fields); err != nil {
		return err
	}

	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	enc := zapcore.NewMapObjectEncoder()
	for _, f := range all {
		f.AddTo(enc)
	}
	formID, _ := enc.Fields[FieldFormID].(string)
	if formID == "" {
		return nil
	}
	delete(enc.Fields, FieldFormID)

	c.hook.add(FormLogRecord{
		Time:    entry.Time,
		FormID:  formID,
		Level:   entry.Level.String(),
		Message: entry.Message,
		Caller:  entry.Caller.TrimmedPath(),
		Fields:  enc.Fields,
	})
	return nil
}

func (c *formLogCore) Sync() error {
	c.hook.Flush()
	return c.Core.Sync()
}

func (h *FormLogHook) add(rec FormLogRecord) {
	h.mu.Lock()
	h.buffer = append(h.buffer, rec)
	var batch []FormLogRecord
	if len(h.buffer) >= hookBufferSize {
		batch = h.takeLocked()
	}
	h.mu.Unlock()
	h.write(batch)
}

// Flush writes buffered records synchronously.
func (h *FormLogHook) Flush() {
	h.mu.Lock()
	batch := h.takeLocked()
	h.mu.Unlock()
	h.write(batch)
}

func (h *FormLogHook) takeLocked() []FormLogRecord {
	if len(h.buffer) == 0 {
		return nil
	}
	batch := h.buffer
	h.buffer = make([]FormLogRecord, 0, hookBufferSize)
	return batch
}

func (h *FormLogHook) write(batch []FormLogRecord) {
	if len(batch) == 0 {
		return
	}
	// stderr only: logging here would recurse into the hook
	if err := h.writer.Write(batch); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write form logs: %v\n", err)
	}
}

func (h *FormLogHook) loop() {
	defer h.wg.Done()
	ticker := time.NewTicker(hookFlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.Flush()
		case <-h.stopCh:
			h.Flush()
			return
		}
	}
}

// Close stops the flusher after a final flush. Safe to call twice.
func (h *FormLogHook) Close() {
	h.stopped.Do(func() { close(h.stopCh) })
	h.wg.Wait()
}
