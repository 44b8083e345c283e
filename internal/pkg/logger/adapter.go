package logger

import (
	"log/slog"

	"portfolio_tracker/internal/app/port"
)

// slogAdapter implements port.Logger on top of a slog.Logger. A nil logger
// means the package-level default installed by Init.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter returns a port.Logger backed by the global logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

// FromSlog wraps an explicit slog.Logger, mostly for tests.
func FromSlog(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

// Nop returns a logger that discards everything.
func Nop() port.Logger {
	return &slogAdapter{l: slog.New(slog.DiscardHandler)}
}

func (a *slogAdapter) logger() *slog.Logger {
	if a.l != nil {
		return a.l
	}
	ensureInitialized()
	return globalLogger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger().Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.logger().Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger().Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger().Error(msg, args...) }

func (a *slogAdapter) With(args ...any) port.Logger {
	return &slogAdapter{l: a.logger().With(args...)}
}
