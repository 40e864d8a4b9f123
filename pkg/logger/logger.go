// Package logger provides structured logging capabilities for the application.
// It wraps uber-go/zap for leveled logging with text and JSON output and
// lumberjack-based file rotation.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var bufferpool = buffer.NewPool()

var (
	globalLogger *zap.Logger
	once         sync.Once
	formLogHook  *FormLogHook
	hookMu       sync.Mutex
)

// Config holds the logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level"`
	// Format is the output format (json, text)
	Format string `yaml:"format"`
	// File is the log file path (empty for stdout only).
	// When set, logs are written to both console and file.
	File string `yaml:"file"`
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated
	MaxSize int `yaml:"max_size"`
	// MaxAge is the maximum number of days to retain old log files
	MaxAge int `yaml:"max_age"`
	// MaxBackups is the maximum number of old log files to retain
	MaxBackups int `yaml:"max_backups"`
	// Compress determines if the rotated log files should be compressed using gzip
	Compress bool `yaml:"compress"`
	// AccessLog prints successful HTTP requests at info level when true
	AccessLog bool `yaml:"access_log"`
}

// Init initializes the global logger with the given configuration.
// This function is safe to call multiple times; only the first call will take effect.
func Init(cfg Config) error {
	once.Do(func() {
		globalLogger = build(cfg)
	})
	return nil
}

func build(cfg Config) *zap.Logger {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 7
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}

	var console, file zapcore.Encoder
	if cfg.Format == "text" {
		console = newKVEncoder(textEncoderConfig(colorLevelEncoder))
		file = newKVEncoder(textEncoderConfig(bracketLevelEncoder))
	} else {
		console = zapcore.NewJSONEncoder(jsonEncoderConfig())
		file = console
	}

	core := zapcore.NewCore(console, zapcore.AddSync(os.Stdout), level)
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create log directory: %v, using console only\n", err)
		} else {
			rotating := zapcore.AddSync(&lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxAge:     cfg.MaxAge,
				MaxBackups: cfg.MaxBackups,
				Compress:   cfg.Compress,
			})
			core = zapcore.NewTee(core, zapcore.NewCore(file, rotating, level))
		}
	}

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func textEncoderConfig(levelEncoder zapcore.LevelEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          zapcore.OmitKey,
		CallerKey:        "caller",
		FunctionKey:      zapcore.OmitKey,
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      levelEncoder,
		EncodeTime:       bracketTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// bracketTimeEncoder formats time with brackets: [2006-01-02 15:04:05]
func bracketTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + t.Format("2006-01-02 15:04:05") + "]")
}

// bracketLevelEncoder formats level with brackets: [INFO]
func bracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

// colorLevelEncoder formats level with brackets and an ANSI color
func colorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	color := "\x1b[0m"
	switch level {
	case zapcore.DebugLevel:
		color = "\x1b[35m"
	case zapcore.InfoLevel:
		color = "\x1b[34m"
	case zapcore.WarnLevel:
		color = "\x1b[33m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		color = "\x1b[31m"
	}
	enc.AppendString(color + "[" + level.CapitalString() + "]\x1b[0m")
}

func parseLevel(level string) (zapcore.Level, error) {
	var l zapcore.Level
	err := l.UnmarshalText([]byte(level))
	return l, err
}

// Get returns the global logger instance.
// If the logger hasn't been initialized, it returns a no-op logger.
func Get() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

// With creates a child logger with additional fields
func With(fields ...zap.Field) *zap.Logger {
	return Get().With(fields...)
}

// WithForm returns a child logger tagged with the draft's form id.
// Entries written through it are captured by the form log hook.
func WithForm(formID string) *zap.Logger {
	return Get().With(zap.String(FieldFormID, formID))
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// Fatal logs a fatal message and exits
func Fatal(msg string, fields ...zap.Field) {
	Get().WithOptions(zap.AddCallerSkip(1)).Fatal(msg, fields...)
}

// Sync flushes any buffered log entries
func Sync() error {
	if globalLogger != nil {
		return globalLogger.Sync()
	}
	return nil
}

// SetFormLogHook installs a hook that copies every entry carrying a form_id
// field to writer. Call after Init.
func SetFormLogHook(writer FormLogWriter) {
	hookMu.Lock()
	defer hookMu.Unlock()
	if globalLogger == nil {
		return
	}

	formLogHook = NewFormLogHook(writer)
	hook := formLogHook
	globalLogger = globalLogger.WithOptions(zap.WrapCore(hook.WrapCore))
}

// CloseFormLogHook stops the hook and flushes remaining entries.
func CloseFormLogHook() {
	hookMu.Lock()
	defer hookMu.Unlock()
	if formLogHook != nil {
		formLogHook.Close()
		formLogHook = nil
	}
}

// kvEncoder renders entries as "[time] [LEVEL] caller msg key=value ...".
// Context fields added through logger.With accumulate in the embedded map.
type kvEncoder struct {
	*zapcore.MapObjectEncoder
	cfg zapcore.EncoderConfig
}

func newKVEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &kvEncoder{MapObjectEncoder: zapcore.NewMapObjectEncoder(), cfg: cfg}
}

func (e *kvEncoder) Clone() zapcore.Encoder {
	clone := zapcore.NewMapObjectEncoder()
	for k, v := range e.Fields {
		clone.Fields[k] = v
	}
	return &kvEncoder{MapObjectEncoder: clone, cfg: e.cfg}
}

func (e *kvEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf := bufferpool.Get()
	sep := e.cfg.ConsoleSeparator

	prim := &primitives{}
	e.cfg.EncodeTime(entry.Time, prim)
	e.cfg.EncodeLevel(entry.Level, prim)
	if entry.Caller.Defined {
		e.cfg.EncodeCaller(entry.Caller, prim)
	}
	for _, s := range prim.elems {
		buf.AppendString(s)
		buf.AppendString(sep)
	}
	buf.AppendString(entry.Message)

	appendKV(buf, sep, e.Fields)
	for _, f := range fields {
		m := zapcore.NewMapObjectEncoder()
		f.AddTo(m)
		appendKV(buf, sep, m.Fields)
	}
	if entry.Stack != "" {
		buf.AppendString(zapcore.DefaultLineEnding)
		buf.AppendString(entry.Stack)
	}
	buf.AppendString(zapcore.DefaultLineEnding)
	return buf, nil
}

func appendKV(buf *buffer.Buffer, sep string, fields map[string]interface{}) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.AppendString(sep)
		buf.AppendString(k)
		buf.AppendByte('=')
		buf.AppendString(fmt.Sprint(fields[k]))
	}
}

// primitives collects the strings produced by time/level/caller encoders.
type primitives struct {
	elems []string
}

func (p *primitives) AppendBool(v bool)              { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendByteString(v []byte)      { p.elems = append(p.elems, string(v)) }
func (p *primitives) AppendComplex128(v complex128)  { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendComplex64(v complex64)    { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendFloat64(v float64)        { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendFloat32(v float32)        { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendInt(v int)                { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendInt64(v int64)            { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendInt32(v int32)            { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendInt16(v int16)            { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendInt8(v int8)              { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendString(v string)          { p.elems = append(p.elems, v) }
func (p *primitives) AppendUint(v uint)              { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendUint64(v uint64)          { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendUint32(v uint32)          { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendUint16(v uint16)          { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendUint8(v uint8)            { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendUintptr(v uintptr)        { p.elems = append(p.elems, fmt.Sprint(v)) }
func (p *primitives) AppendDuration(v time.Duration) { p.elems = append(p.elems, v.String()) }
func (p *primitives) AppendTime(v time.Time)         { p.elems = append(p.elems, v.String()) }
