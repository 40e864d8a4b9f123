package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func resetGlobal() {
	globalLogger = nil
	once = sync.Once{}
}

func TestInit(t *testing.T) {
	resetGlobal()

	cfg := Config{Level: "info", Format: "json"}
	require.NoError(t, Init(cfg))
	// Second call is a no-op
	require.NoError(t, Init(cfg))
	assert.NotNil(t, Get())
}

func TestInit_InvalidLevelDefaultsToInfo(t *testing.T) {
	resetGlobal()

	require.NoError(t, Init(Config{Level: "loud", Format: "json"}))
	assert.True(t, Get().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Get().Core().Enabled(zapcore.DebugLevel))
}

func TestInit_WithFile(t *testing.T) {
	resetGlobal()

	path := filepath.Join(t.TempDir(), "logs", "reportdesk.log")
	require.NoError(t, Init(Config{Level: "info", Format: "text", File: path}))

	Info("draft restored", zap.String("step", "EditingSections"))
	require.NoError(t, Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO]")
	assert.Contains(t, string(data), "step=EditingSections")
}

func TestGet_Uninitialized(t *testing.T) {
	resetGlobal()
	assert.NotNil(t, Get(), "Get() must return a no-op logger before Init")
	assert.NoError(t, Sync())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"nope", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKVEncoder(t *testing.T) {
	enc := newKVEncoder(textEncoderConfig(bracketLevelEncoder))
	child := enc.Clone()
	child.AddString(FieldFormID, "f1")

	buf, err := child.EncodeEntry(zapcore.Entry{
		Level:   zapcore.WarnLevel,
		Time:    time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC),
		Message: "autosave failed",
	}, []zapcore.Field{zap.Int("attempt", 2)})
	require.NoError(t, err)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[2026-01-01 09:30:00] [WARN] autosave failed"), line)
	assert.Contains(t, line, "form_id=f1")
	assert.Contains(t, line, "attempt=2")

	// The parent encoder is unaffected by the child's context
	buf, err = enc.EncodeEntry(zapcore.Entry{Message: "x", Time: time.Now()}, nil)
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "form_id")
}

type memWriter struct {
	mu      sync.Mutex
	records []FormLogRecord
}

func (w *memWriter) Write(records []FormLogRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.records = append(w.records, records...)
	return nil
}

func (w *memWriter) snapshot() []FormLogRecord {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]FormLogRecord(nil), w.records...)
}

func TestFormLogHook_CapturesOnlyFormEntries(t *testing.T) {
	w := &memWriter{}
	hook := NewFormLogHook(w)
	defer hook.Close()

	core, observed := observer.New(zapcore.DebugLevel)
	log := zap.New(hook.WrapCore(core))

	log.Info("unrelated")
	log.With(zap.String(FieldFormID, "form-a")).Info("header updated", zap.String("field", "title"))
	log.Warn("snapshot failed", zap.String(FieldFormID, "form-b"))
	hook.Flush()

	assert.Equal(t, 3, observed.Len(), "underlying core must receive every entry")

	got := w.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "form-a", got[0].FormID)
	assert.Equal(t, "header updated", got[0].Message)
	assert.Equal(t, "title", got[0].Fields["field"])
	assert.NotContains(t, got[0].Fields, FieldFormID)
	assert.Equal(t, "form-b", got[1].FormID)
	assert.Equal(t, "warn", got[1].Level)
}

func TestFormLogHook_CloseFlushes(t *testing.T) {
	w := &memWriter{}
	hook := NewFormLogHook(w)

	core, _ := observer.New(zapcore.InfoLevel)
	zap.New(hook.WrapCore(core)).Info("queued", zap.String(FieldFormID, "f"))

	hook.Close()
	hook.Close()
	assert.Len(t, w.snapshot(), 1)
}

func TestSetFormLogHook(t *testing.T) {
	resetGlobal()
	var out bytes.Buffer
	globalLogger = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(&out), zapcore.InfoLevel))

	w := &memWriter{}
	SetFormLogHook(w)
	WithForm("draft-1").Info("section added")
	CloseFormLogHook()

	got := w.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "draft-1", got[0].FormID)
	assert.Contains(t, out.String(), "section added")
	resetGlobal()
}
