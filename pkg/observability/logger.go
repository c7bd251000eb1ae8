// Package observability provides the structured logger, Prometheus
// metrics, and health/metrics HTTP surface every long-running component of
// this engine shares, grounded on the teacher's pkg/observability package
// of the same name.
package observability

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a *logrus.Entry logging JSON lines at level to out.
// Components taking a logger as a constructor argument default to
// Discard() when given nil, the same way the teacher's pkg/plugins.NewLoader
// defaults its *logrus.Logger argument.
func NewLogger(level logrus.Level, out io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})
	if out != nil {
		l.SetOutput(out)
	}
	return logrus.NewEntry(l)
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// OrDiscard returns log unchanged, or a fresh discard logger if log is
// nil — the one-liner every SetLogger method in this module uses so a
// caller can pass nil to revert to discard logging.
func OrDiscard(log *logrus.Entry) *logrus.Entry {
	if log == nil {
		return Discard()
	}
	return log
}

type contextKey string

const loggerKey contextKey = "observability_logger"

// WithLogger attaches log to ctx.
func WithLogger(ctx context.Context, log *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger attached by WithLogger, or a discard
// logger if none was attached — a request handler can always call this
// without a nil check, the same contract GetLogger gives the teacher's
// HTTP middleware.
func FromContext(ctx context.Context) *logrus.Entry {
	if log, ok := ctx.Value(loggerKey).(*logrus.Entry); ok && log != nil {
		return log
	}
	return Discard()
}
