package cmdlogger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// invalidConfigPrefix marks error records emitted when a config file could
// not be parsed, so the cli can exit with a dedicated code.
const invalidConfigPrefix = "Ignored invalid config file"

// Handler is a [slog.Handler] that writes plain messages, sending errors to
// stderr and everything else to stdout.
//
// Several scan sessions can log at the same time, so all state is guarded.
type Handler struct {
	mu sync.Mutex

	stdout             io.Writer
	stderr             io.Writer
	hasErrored         bool
	everythingToStderr bool
	level              slog.Leveler

	hasErroredBecauseInvalidConfig bool
}

// SendEverythingToStderr tells the logger to send all logs to stderr regardless
// of their level.
//
// This is useful if we're expecting to output structured data to stdout such
// as JSON or SARIF, which cannot be mixed with other output.
func (c *Handler) SendEverythingToStderr() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.everythingToStderr = true
}

func (c *Handler) SetLevel(level slog.Leveler) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.level = level
}

func (c *Handler) writer(level slog.Level) io.Writer {
	if c.everythingToStderr || level >= slog.LevelError {
		return c.stderr
	}

	return c.stdout
}

func (c *Handler) Enabled(_ context.Context, level slog.Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if level >= slog.LevelError {
		c.hasErrored = true
	}

	return level >= c.level.Level()
}

func (c *Handler) Handle(_ context.Context, record slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if record.Level >= slog.LevelError {
		c.hasErrored = true

		if strings.HasPrefix(record.Message, invalidConfigPrefix) {
			c.hasErroredBecauseInvalidConfig = true
		}
	}

	_, err := fmt.Fprint(c.writer(record.Level), record.Message+"\n")

	return err
}

// HasErrored returns true if there have been any calls to Handle with
// a level of [slog.LevelError]
func (c *Handler) HasErrored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasErrored
}

// HasErroredBecauseInvalidConfig returns true if there have been any calls to
// Handle with a level of [slog.LevelError] due to a config file being invalid
func (c *Handler) HasErroredBecauseInvalidConfig() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasErroredBecauseInvalidConfig
}

// WithAttrs returns the handler unchanged, as attributes are never rendered.
func (c *Handler) WithAttrs(_ []slog.Attr) slog.Handler {
	return c
}

// WithGroup returns the handler unchanged, as groups are never rendered.
func (c *Handler) WithGroup(_ string) slog.Handler {
	return c
}

var _ CmdLogger = &Handler{}

func New(stdout, stderr io.Writer) CmdLogger {
	return &Handler{
		stdout: stdout,
		stderr: stderr,
		level:  slog.LevelInfo,
	}
}
