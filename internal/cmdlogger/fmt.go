package cmdlogger

import (
	"fmt"
	"log/slog"
)

func Debugf(msg string, args ...any) {
	slog.Debug(fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	slog.Info(fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...any) {
	slog.Warn(fmt.Sprintf(msg, args...))
}

func Errorf(msg string, args ...any) {
	slog.Error(fmt.Sprintf(msg, args...))
}

// Prefixed formats log lines with a fixed label, such as the project a scan
// session is working on, so that interleaved output stays readable.
type Prefixed string

func (p Prefixed) format(msg string, args []any) string {
	if p == "" {
		return fmt.Sprintf(msg, args...)
	}

	return "[" + string(p) + "] " + fmt.Sprintf(msg, args...)
}

func (p Prefixed) Debugf(msg string, args ...any) {
	slog.Debug(p.format(msg, args))
}

func (p Prefixed) Infof(msg string, args ...any) {
	slog.Info(p.format(msg, args))
}

func (p Prefixed) Warnf(msg string, args ...any) {
	slog.Warn(p.format(msg, args))
}

func (p Prefixed) Errorf(msg string, args ...any) {
	slog.Error(p.format(msg, args))
}
