package logger

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
)

type Logger struct {
	*slog.Logger
}

type options struct {
	level  slog.Level
	json   bool
	writer io.Writer
}

type Option func(*options)

// WithLevel accepts debug, info, warn or error; anything else means info.
func WithLevel(level string) Option {
	return func(o *options) {
		switch strings.ToLower(level) {
		case "debug":
			o.level = slog.LevelDebug
		case "warn", "warning":
			o.level = slog.LevelWarn
		case "error":
			o.level = slog.LevelError
		default:
			o.level = slog.LevelInfo
		}
	}
}

func WithJSON(json bool) Option {
	return func(o *options) {
		o.json = json
	}
}

func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

func New(opts ...Option) *Logger {
	o := options{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: o.level,
	}

	var h slog.Handler = slog.NewTextHandler(o.writer, handlerOpts)
	if o.json {
		h = slog.NewJSONHandler(o.writer, handlerOpts)
	}

	return &Logger{Logger: slog.New(h)}
}

// Discard drops everything, for tests and for the TUI which owns the
// terminal.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func NewMiddleware(base *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := base.With(
				"request_id", uuid.NewString(),
				"method", r.Method,
				"path", r.URL.Path,
			)
			ctx := NewContext(r.Context(), l)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type loggerContextKey string

const contextKeyValue loggerContextKey = "context-logger"

func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKeyValue, l)
}

func FromContext(ctx context.Context) *Logger {
	if l := ctx.Value(contextKeyValue); l != nil {
		return l.(*Logger)
	}

	return New()
}
