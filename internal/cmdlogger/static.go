package cmdlogger

import "log/slog"

func current() (CmdLogger, bool) {
	l, ok := slog.Default().Handler().(CmdLogger)

	return l, ok
}

// HasErrored returns true if there have been any calls to Handle with
// a level of [slog.LevelError], assuming the logger is a [Handler].
//
// If the logger is not a [Handler], this will always return false.
func HasErrored() bool {
	if l, ok := current(); ok {
		return l.HasErrored()
	}

	return false
}

// HasErroredBecauseInvalidConfig reports whether a config file failed to
// parse during this run.
func HasErroredBecauseInvalidConfig() bool {
	if l, ok := current(); ok {
		return l.HasErroredBecauseInvalidConfig()
	}

	return false
}

func SetLevel(level slog.Leveler) {
	if l, ok := current(); ok {
		l.SetLevel(level)
	}
}
