package observability

import (
	"os"

	"github.com/rs/zerolog"
)

// ZerologLogger adapts github.com/rs/zerolog to the Logger interface, the
// concrete logger docia wires through the pipeline by default.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger builds a Logger writing structured JSON to stderr at the
// given level (e.g. "debug", "info", "warn", "error").
func NewZerologLogger(level string) ZerologLogger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return ZerologLogger{logger: zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()}
}

func (z ZerologLogger) Debug(msg string, fields ...Field) { z.event(z.logger.Debug(), fields).Msg(msg) }
func (z ZerologLogger) Info(msg string, fields ...Field)  { z.event(z.logger.Info(), fields).Msg(msg) }
func (z ZerologLogger) Warn(msg string, fields ...Field)  { z.event(z.logger.Warn(), fields).Msg(msg) }
func (z ZerologLogger) Error(msg string, fields ...Field) { z.event(z.logger.Error(), fields).Msg(msg) }

func (z ZerologLogger) With(fields ...Field) Logger {
	ctx := z.logger.With()
	for _, f := range fields {
		ctx = applyContext(ctx, f)
	}
	return ZerologLogger{logger: ctx.Logger()}
}

func (z ZerologLogger) event(e *zerolog.Event, fields []Field) *zerolog.Event {
	for _, f := range fields {
		e = applyEvent(e, f)
	}
	return e
}

func applyEvent(e *zerolog.Event, f Field) *zerolog.Event {
	switch v := f.Value().(type) {
	case string:
		return e.Str(f.Key(), v)
	case int:
		return e.Int(f.Key(), v)
	case int64:
		return e.Int64(f.Key(), v)
	case error:
		return e.AnErr(f.Key(), v)
	default:
		return e.Interface(f.Key(), v)
	}
}

func applyContext(ctx zerolog.Context, f Field) zerolog.Context {
	switch v := f.Value().(type) {
	case string:
		return ctx.Str(f.Key(), v)
	case int:
		return ctx.Int(f.Key(), v)
	case int64:
		return ctx.Int64(f.Key(), v)
	case error:
		return ctx.AnErr(f.Key(), v)
	default:
		return ctx.Interface(f.Key(), v)
	}
}
