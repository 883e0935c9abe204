// Package testlogger provides a global slog handler for tests that run in
// parallel, sending each record to the logger of the test that produced it.
package testlogger

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/codescan-io/codescan/internal/cmdlogger"
)

// Handler is set as the default slog handler in TestMain. Each test then
// registers its own cmdlogger.CmdLogger with AddInstance.
//
// Records are routed by the test runner frame on the caller's stack. Records
// from a goroutine started directly by a test, such as the workers of an
// errgroup, go to the logger of the test that started it.
type Handler struct {
	loggers sync.Map // test runner frame -> cmdlogger.CmdLogger
	owners  sync.Map // goroutine id -> test runner frame
}

func New() *Handler {
	return &Handler{}
}

// AddInstance registers logger for the calling test.
func (tl *Handler) AddInstance(logger cmdlogger.CmdLogger) {
	g := currentGoroutine()
	if g.testRunner == "" {
		panic("AddInstance must be called from a test goroutine")
	}

	if _, loaded := tl.loggers.LoadOrStore(g.testRunner, logger); loaded {
		panic("same logger being added twice")
	}
	tl.owners.Store(g.id, g.testRunner)
}

// Delete removes the logger added by AddInstance. It must be called before
// the test ends, as the runner frame can be reused by a later test.
func (tl *Handler) Delete() {
	g := currentGoroutine()
	tl.loggers.Delete(g.testRunner)
	tl.owners.Delete(g.id)
}

func (tl *Handler) logger() cmdlogger.CmdLogger {
	g := currentGoroutine()

	key := g.testRunner
	if key == "" {
		owner, ok := tl.owners.Load(g.parent)
		if !ok {
			panic("logging from goroutine " + g.id + " which was not started by a test")
		}
		key = owner.(string)
	}

	l, ok := tl.loggers.Load(key)
	if !ok {
		panic("logger not found: " + key)
	}

	return l.(cmdlogger.CmdLogger)
}

func (tl *Handler) SendEverythingToStderr() {
	tl.logger().SendEverythingToStderr()
}

func (tl *Handler) SetLevel(level slog.Leveler) {
	tl.logger().SetLevel(level)
}

func (tl *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return tl.logger().Enabled(ctx, level)
}

func (tl *Handler) Handle(ctx context.Context, record slog.Record) error {
	return tl.logger().Handle(ctx, record)
}

func (tl *Handler) HasErrored() bool {
	return tl.logger().HasErrored()
}

func (tl *Handler) HasErroredBecauseInvalidConfig() bool {
	return tl.logger().HasErroredBecauseInvalidConfig()
}

func (tl *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tl.logger().WithAttrs(attrs)
}

func (tl *Handler) WithGroup(g string) slog.Handler {
	return tl.logger().WithGroup(g)
}

var _ cmdlogger.CmdLogger = &Handler{}

type goroutine struct {
	id string
	// parent is the id of the goroutine that started this one
	parent string
	// testRunner is the `testing.tRunner(0x12345678, 0x98765432)` frame, which
	// is unique while the test is running
	testRunner string
}

func currentGoroutine() goroutine {
	var g goroutine

	sc := bufio.NewScanner(bytes.NewReader(debug.Stack()))
	for sc.Scan() {
		line := sc.Text()

		switch {
		case g.id == "" && strings.HasPrefix(line, "goroutine "):
			if fields := strings.Fields(line); len(fields) > 1 {
				g.id = fields[1]
			}
		case strings.HasPrefix(line, "testing.tRunner("):
			g.testRunner = line
		case strings.HasPrefix(line, "created by "):
			if _, parent, ok := strings.Cut(line, " in goroutine "); ok {
				g.parent = strings.TrimSpace(parent)
			}
		}
	}

	return g
}
