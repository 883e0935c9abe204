package cmdlogger

import (
	"fmt"
	"log/slog"
	"strings"
)

var levels = []string{
	"debug",
	"info",
	"warn",
	"error",
}

func Levels() []string {
	return levels
}

func ParseLevel(text string) (slog.Level, error) {
	switch text {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid verbosity level \"%s\" - must be one of: %s", text, strings.Join(Levels(), ", "))
	}
}
