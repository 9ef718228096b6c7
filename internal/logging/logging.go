// Package logging provides the structured LogService every long-lived
// GekkoFS process (daemon, registry, client context) logs through. The
// call-site shape — Debug/Info/Warn/Error(LogEvent) — follows the
// reference log_service package this was adapted from; the backing
// implementation is go.uber.org/zap instead of a raw stdlib *log.Logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogEvent is a single structured log line: a short message plus
// arbitrary key/value metadata, translated to zap fields at the call site.
type LogEvent struct {
	Message  string
	Metadata map[string]any
}

// LogService is the leveled logging interface every component depends on.
// Depending on an interface (instead of *zap.Logger directly) keeps
// components testable with a no-op or recording implementation.
type LogService interface {
	Debug(event LogEvent)
	Info(event LogEvent)
	Warn(event LogEvent)
	Error(event LogEvent)
	With(fields ...any) LogService
	Sync() error
}

type zapLogService struct {
	l *zap.SugaredLogger
}

// Options configures the process-wide logger.
type Options struct {
	// Component is attached to every log line ("daemon", "registry", "client").
	Component string
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// JSON selects JSON encoding (for log shipping); console encoding is
	// used otherwise, which is friendlier for local development.
	JSON bool
}

// New builds a zap-backed LogService per Options.
func New(opts Options) (LogService, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.Set(opts.Level); err != nil {
			return nil, err
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level)
	base := zap.New(core, zap.AddCaller())
	if opts.Component != "" {
		base = base.With(zap.String("component", opts.Component))
	}

	return &zapLogService{l: base.Sugar()}, nil
}

// Nop returns a LogService that discards everything, for unit tests that
// don't care about log output but need to satisfy the interface.
func Nop() LogService {
	return &zapLogService{l: zap.NewNop().Sugar()}
}

func (z *zapLogService) fields(event LogEvent) []any {
	if len(event.Metadata) == 0 {
		return nil
	}
	fields := make([]any, 0, len(event.Metadata)*2)
	for k, v := range event.Metadata {
		fields = append(fields, k, v)
	}
	return fields
}

func (z *zapLogService) Debug(event LogEvent) { z.l.Debugw(event.Message, z.fields(event)...) }
func (z *zapLogService) Info(event LogEvent)  { z.l.Infow(event.Message, z.fields(event)...) }
func (z *zapLogService) Warn(event LogEvent)  { z.l.Warnw(event.Message, z.fields(event)...) }
func (z *zapLogService) Error(event LogEvent) { z.l.Errorw(event.Message, z.fields(event)...) }

func (z *zapLogService) With(fields ...any) LogService {
	return &zapLogService{l: z.l.With(fields...)}
}

func (z *zapLogService) Sync() error { return z.l.Sync() }
