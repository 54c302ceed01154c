package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// LogLevel type alias for log level constants
type LogLevel string

// Log levels
const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	sessionIDKey ctxKey = "session_id"
)

// Config contains logger configuration options
type Config struct {
	// Level is the minimum level to log
	Level string
	// JSON enables JSON formatting instead of text
	JSON bool
	// Output is where logs will be written (defaults to os.Stderr)
	Output io.Writer
	// AddSource adds source code information to logs
	AddSource bool
}

// DefaultConfig returns a default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		JSON:      true,
		Output:    os.Stderr,
		AddSource: false,
	}
}

// Logger wraps slog for structured logging
type Logger struct {
	*slog.Logger
	config Config
}

var (
	global   *Logger
	globalMu sync.RWMutex
)

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a new logger with the given configuration
func New(config Config) *Logger {
	if config.Output == nil {
		config.Output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSON {
		handler = slog.NewJSONHandler(config.Output, opts)
	} else {
		handler = slog.NewTextHandler(config.Output, opts)
	}

	l := &Logger{
		Logger: slog.New(handler),
		config: config,
	}

	globalMu.Lock()
	if global == nil {
		global = l
	}
	globalMu.Unlock()

	return l
}

// NewNop returns a logger that discards everything. Used by tests and
// by components constructed without a logger.
func NewNop() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		config: Config{Output: io.Discard},
	}
}

// SetGlobal sets the global logger instance
func SetGlobal(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = l
}

// GetGlobal returns the global logger instance, or a no-op logger if none was set
func GetGlobal() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if global == nil {
		return NewNop()
	}
	return global
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return NewNop()
	}
	return l
}

// LogError logs an error with context information
func (l *Logger) LogError(err error, msg string, args ...any) {
	if err == nil {
		l.Error(msg, args...)
		return
	}
	l.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

// LogWarn logs a swallowed failure at warn level.
func (l *Logger) LogWarn(err error, msg string, args ...any) {
	if err == nil {
		l.Warn(msg, args...)
		return
	}
	l.Warn(msg, append([]any{"error", err.Error()}, args...)...)
}

func (l *Logger) with(key, value string) *Logger {
	if value == "" {
		return l
	}
	return &Logger{Logger: l.With(key, value), config: l.config}
}

// WithRequestID adds a request ID to the logger's context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithSessionID tags entries with the conversation session they belong to
func (l *Logger) WithSessionID(sessionID string) *Logger {
	return l.with("session_id", sessionID)
}

// WithCharacter tags entries with a character id
func (l *Logger) WithCharacter(characterID string) *Logger {
	return l.with("character_id", characterID)
}

// WithComponent tags entries with the emitting component
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithFields attaches arbitrary key-value pairs
func (l *Logger) WithFields(args ...any) *Logger {
	if len(args) == 0 {
		return l
	}
	return &Logger{Logger: l.With(args...), config: l.config}
}

// WithContext adds request and session ids carried by ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	out := l
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		out = out.WithRequestID(id)
	}
	if id, ok := ctx.Value(sessionIDKey).(string); ok {
		out = out.WithSessionID(id)
	}
	return out
}

// ContextWithRequestID stores a request id for WithContext
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithSessionID stores a session id for WithContext
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// LogRequest logs details about an HTTP request
func (l *Logger) LogRequest(method, path string, status int, latency time.Duration) {
	l.Info("request completed",
		"method", method,
		"path", path,
		"status", status,
		"latency_ms", latency.Milliseconds(),
	)
}
