package logging

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Slog exposes the zap-backed logger as a *slog.Logger, for the callers that
// take log/slog rather than this package's own Logger (the waiver submission
// and processor services, and the pprof and pyroscope helpers), so every
// caller still ends up writing through the same zapcore.Core and sink.
func (l *Logger) Slog() *slog.Logger {
	if l == nil || l.zap == nil {
		return slog.New(zapSlogHandler{core: zap.NewNop().Core()})
	}
	return slog.New(zapSlogHandler{core: l.zap.Core()})
}

type zapSlogHandler struct {
	core zapcore.Core
	add  []zapcore.Field
}

func (h zapSlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.core.Enabled(slogToZapLevel(level))
}

func (h zapSlogHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := make([]zapcore.Field, 0, record.NumAttrs()+len(h.add)+2)
	fields = append(fields, h.add...)
	record.Attrs(func(a slog.Attr) bool {
		fields = append(fields, slogAttrToZapField(a))
		return true
	})
	fields = append(fields, traceFields(ctx)...)

	level := slogToZapLevel(record.Level)
	if ce := h.core.Check(zapcore.Entry{Level: level, Time: record.Time, Message: record.Message}, nil); ce != nil {
		ce.Write(fields...)
	}
	return nil
}

func (h zapSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	added := make([]zapcore.Field, 0, len(attrs))
	for _, a := range attrs {
		added = append(added, slogAttrToZapField(a))
	}
	return zapSlogHandler{core: h.core, add: append(append([]zapcore.Field(nil), h.add...), added...)}
}

func (h zapSlogHandler) WithGroup(name string) slog.Handler {
	return h
}

func slogAttrToZapField(a slog.Attr) zapcore.Field {
	if err, ok := a.Value.Any().(error); ok {
		return zap.NamedError(a.Key, err)
	}
	return zap.Any(a.Key, a.Value.Any())
}

func slogToZapLevel(level slog.Level) zapcore.Level {
	switch {
	case level >= slog.LevelError:
		return zapcore.ErrorLevel
	case level >= slog.LevelWarn:
		return zapcore.WarnLevel
	case level >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
