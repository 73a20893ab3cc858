package engine

import (
	"context"
	"log/slog"
)

// Notification is a user-facing message about a background failure.
type Notification struct {
	Level   slog.Level
	Code    ErrorCode
	Message string
	Err     error
}

// Notifier surfaces notifications to the user. Notify is called from the
// coordinator loop and from write goroutines; it must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a slog.Logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"code", string(n.Code)}
	if n.Err != nil {
		attrs = append(attrs, "error", n.Err)
	}
	logger.Log(context.Background(), n.Level, n.Message, attrs...)
}
