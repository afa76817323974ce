package observer

import (
	"context"
	"log/slog"

	"github.com/willibrandon/scripttrace/pkg/instrumentation"
	"github.com/willibrandon/scripttrace/pkg/tracer"
)

type loggerConfig struct {
	logger *slog.Logger
	level  slog.Level
}

// LoggerOption configures the logger observer.
type LoggerOption func(*loggerConfig)

// WithLogger sets a custom slog.Logger. Default is slog.Default().
func WithLogger(l *slog.Logger) LoggerOption {
	return func(c *loggerConfig) {
		c.logger = l
	}
}

// WithLevel sets the level of execution events. Default is slog.LevelDebug.
// Markers are logged at Info and exceptions at Warn regardless.
func WithLevel(level slog.Level) LoggerOption {
	return func(c *loggerConfig) {
		c.level = level
	}
}

type logObserver struct {
	cfg loggerConfig
}

// Logger creates an observer that writes every record through slog.
func Logger(opts ...LoggerOption) tracer.Observer {
	cfg := loggerConfig{level: slog.LevelDebug}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &logObserver{cfg: cfg}
}

func (o *logObserver) Observe(category, message string) {
	o.cfg.logger.Log(context.Background(), o.cfg.level, message, slog.String("category", category))
}

func (o *logObserver) ObserveRecord(rec tracer.Record) {
	ctx := context.Background()
	switch {
	case rec.System:
		o.cfg.logger.Log(ctx, slog.LevelInfo, rec.Message)
	case rec.Kind == instrumentation.KindException:
		o.cfg.logger.Log(ctx, slog.LevelWarn, rec.Message,
			slog.String("path", rec.Path),
			slog.Int("line", rec.Line),
			slog.String("name", rec.Name),
		)
	default:
		o.cfg.logger.Log(ctx, o.cfg.level, rec.Message,
			slog.String("event", rec.Kind.String()),
			slog.String("path", rec.Path),
			slog.Int("line", rec.Line),
			slog.String("name", rec.Name),
		)
	}
}
