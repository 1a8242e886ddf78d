package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/checklistapp/diagram/pkg/config"
	"github.com/checklistapp/diagram/pkg/diagram"
)

// newLogger creates a logger with timestamps formatted as "HH:MM:SS.ms".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress times one operation and logs it at debug level with its fields.
type progress struct {
	logger *log.Logger
	start  time.Time
	fields []any
}

func newProgress(l *log.Logger, keyvals ...any) *progress {
	return &progress{logger: l, start: time.Now(), fields: keyvals}
}

// done logs msg with the progress fields, any extra keyvals, and "elapsed".
func (p *progress) done(msg string, keyvals ...any) {
	fields := append(append(p.fields[:len(p.fields):len(p.fields)], keyvals...), "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Debug(msg, fields...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by the root command, or
// log.Default() when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// editorOptions combines the configured policy and geometry with the
// command's logger.
func editorOptions(ctx context.Context, cfg config.Config) []diagram.Option {
	return append(cfg.EditorOptions(), diagram.WithLogger(loggerFromContext(ctx)))
}
