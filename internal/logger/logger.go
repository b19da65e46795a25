package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Options selects the handler. The zero value is colored text at debug level.
type Options struct {
	JSON  bool
	Level slog.Level
}

// OptionsFromEnv picks JSON at info level in Kubernetes, prod and dev, and
// colored text at debug level elsewhere. LOG_FORMAT (json|text) and LOG_LEVEL
// (debug|info|warn|error) override either choice.
func OptionsFromEnv() Options {
	_, inK8s := os.LookupEnv("KUBERNETES_SERVICE_HOST")
	env := os.Getenv("ENV")

	opts := Options{Level: slog.LevelDebug}
	if inK8s || env == "prod" || env == "dev" {
		opts = Options{JSON: true, Level: slog.LevelInfo}
	}

	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		opts.JSON = true
	case "text":
		opts.JSON = false
	}

	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(raw)); err == nil {
			opts.Level = level
		}
	}
	return opts
}

// New writes to stdout with OptionsFromEnv.
func New() *slog.Logger {
	return NewWithOptions(os.Stdout, OptionsFromEnv())
}

// NewWithWriter is NewWithOptions with the default level of the chosen format.
func NewWithWriter(w io.Writer, useJSON bool) *slog.Logger {
	if useJSON {
		return NewWithOptions(w, Options{JSON: true, Level: slog.LevelInfo})
	}
	return NewWithOptions(w, Options{Level: slog.LevelDebug})
}

// NewWithOptions builds the handler chain. Records logged with a span in the
// context carry trace_id and span_id.
func NewWithOptions(w io.Writer, opts Options) *slog.Logger {
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level, AddSource: true})
	} else {
		handler = &levelColorHandler{next: slog.NewTextHandler(w, &slog.HandlerOptions{Level: opts.Level})}
	}
	return slog.New(&spanHandler{next: handler})
}

func NewWithServiceContext(serviceName, version string) *slog.Logger {
	return New().With(
		slog.String("service", serviceName),
		slog.String("version", version),
		slog.String("environment", os.Getenv("ENV")),
	)
}

var levelColors = map[slog.Level]string{
	slog.LevelWarn:  "\x1b[33m",
	slog.LevelError: "\x1b[31m",
}

// levelColorHandler paints WARN messages yellow and ERROR messages red.
type levelColorHandler struct {
	next slog.Handler
}

func (h *levelColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *levelColorHandler) Handle(ctx context.Context, r slog.Record) error {
	color, ok := levelColors[r.Level]
	if !ok {
		return h.next.Handle(ctx, r)
	}

	painted := slog.NewRecord(r.Time, r.Level, color+r.Message+"\x1b[0m", r.PC)
	r.Attrs(func(a slog.Attr) bool {
		painted.AddAttrs(a)
		return true
	})
	return h.next.Handle(ctx, painted)
}

func (h *levelColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelColorHandler{next: h.next.WithAttrs(attrs)}
}

func (h *levelColorHandler) WithGroup(name string) slog.Handler {
	return &levelColorHandler{next: h.next.WithGroup(name)}
}

type spanHandler struct {
	next slog.Handler
}

func (h *spanHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r = r.Clone()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, r)
}

func (h *spanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanHandler{next: h.next.WithAttrs(attrs)}
}

func (h *spanHandler) WithGroup(name string) slog.Handler {
	return &spanHandler{next: h.next.WithGroup(name)}
}
