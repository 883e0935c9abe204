package cmdlogger

import "log/slog"

type CmdLogger interface {
	slog.Handler
	SendEverythingToStderr()
	HasErrored() bool
	HasErroredBecauseInvalidConfig() bool
	SetLevel(level slog.Leveler)
}

// SendEverythingToStderr tells the logger (if its in use) to send all logs
// to stderr regardless of their level.
func SendEverythingToStderr() {
	if l, ok := current(); ok {
		l.SendEverythingToStderr()
	}
}
