// Package notice carries fire-and-forget user messages out of the editor.
package notice

import (
	"context"
	"log/slog"
)

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

// Notifier shows a message to the user. Implementations must not block.
type Notifier interface {
	Notify(level Level, message string)
}

// Func adapts a plain function to Notifier.
type Func func(level Level, message string)

func (f Func) Notify(level Level, message string) { f(level, message) }

// Nop drops every message.
type Nop struct{}

func (Nop) Notify(Level, string) {}

// LogNotifier writes messages to a structured logger, mapping Error to
// slog.LevelError and everything else to slog.LevelInfo.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(level Level, message string) {
	if n.Logger == nil {
		return
	}
	lvl := slog.LevelInfo
	if level == Error {
		lvl = slog.LevelError
	}
	n.Logger.Log(context.Background(), lvl, message, "notice", string(level))
}

// Safe returns n, or Nop when n is nil.
func Safe(n Notifier) Notifier {
	if n == nil {
		return Nop{}
	}
	return n
}
