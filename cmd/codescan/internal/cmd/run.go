package cmd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/codescan-io/codescan/internal/archive"
	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/internal/payload"
	"github.com/codescan-io/codescan/internal/testlogger"
	"github.com/codescan-io/codescan/internal/version"
	"github.com/codescan-io/codescan/pkg/codescan"
	"github.com/urfave/cli/v3"
)

var (
	commit = "n/a"
	date   = "n/a"
)

type CommandBuilder = func(stdout, stderr io.Writer) *cli.Command

// payloadErrors are problems with the project itself, rather than with
// talking to the scan service
var payloadErrors = []error{
	payload.ErrNoFileSelected,
	payload.ErrPayloadTooLarge,
	payload.ErrNoValidFiles,
	payload.ErrBuildArtifactsNotFound,
	archive.ErrArchiveWrite,
	codescan.ErrPayloadBuildTimeout,
}

var serviceErrors = []error{
	codescan.ErrUploadFailed,
	codescan.ErrScanCreationFailed,
	codescan.ErrScanFailed,
	codescan.ErrScanTimeout,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func Run(args []string, stdout, stderr io.Writer, commands []CommandBuilder) int {
	// urfave/cli uses a global for its help flag which makes it possible for a nil
	// pointer dereference if running in a parallel setting, which our test suite
	// does, so this is used to hide the help flag so the global won't be used
	// unless a particular env variable is set
	//
	// see https://github.com/urfave/cli/issues/2176
	shouldHideHelp := testing.Testing() && os.Getenv("TEST_SHOW_HELP") != "true"

	// --- Setup Logger ---
	logHandler := cmdlogger.New(stdout, stderr)

	// If in testing mode, set logger via Handler
	// Otherwise, set default global logger
	if testing.Testing() {
		handler, ok := slog.Default().Handler().(*testlogger.Handler)
		if !ok {
			panic("Test failed to initialize default logger with Handler")
		}

		handler.AddInstance(logHandler)
		defer handler.Delete()
	} else {
		slog.SetDefault(slog.New(logHandler))
	}
	// ---

	cli.VersionPrinter = func(cmd *cli.Command) {
		cmdlogger.Infof("codescan version: %s", cmd.Version)
		cmdlogger.Infof("commit: %s", commit)
		cmdlogger.Infof("built at: %s", date)
	}

	cmds := make([]*cli.Command, 0, len(commands))
	for _, cmd := range commands {
		c := cmd(stdout, stderr)
		c.HideHelp = shouldHideHelp

		cmds = append(cmds, c)
	}

	app := &cli.Command{
		Name:           "codescan",
		Version:        version.CodescanVersion,
		Usage:          "sends projects to the remote code scan service and reports what it finds",
		Suggest:        true,
		HideHelp:       shouldHideHelp,
		Writer:         stdout,
		ErrWriter:      stderr,
		DefaultCommand: "scan",
		Commands:       cmds,

		CustomRootCommandHelpTemplate: getCustomHelpTemplate(),
	}

	// If ExitErrHandler is not set, cli will use the default cli.HandleExitCoder,
	// which exits early for any error that happens to have an ExitCode() method
	// (e.g. *exec.ExitError) without proper error handling.
	app.ExitErrHandler = func(_ context.Context, _ *cli.Command, _ error) {}

	args = insertDefaultCommand(args, app.Commands, app.DefaultCommand, stderr)

	err := app.Run(context.Background(), args)

	// if the config is invalid, it's possible that is why any other errors
	// happened so that exit code takes priority
	if logHandler.HasErroredBecauseInvalidConfig() {
		return 130
	}

	if err != nil {
		switch {
		case isAny(err, payloadErrors):
			cmdlogger.Errorf("%v", err)
			return 128
		case isAny(err, serviceErrors):
			cmdlogger.Errorf("%v", err)
			return 129
		case errors.Is(err, codescan.ErrIssuesFound):
			return 1
		}
		cmdlogger.Errorf("%v", err)
	}

	// if we've been told to print an error, and not already exited with
	// a specific error code, then exit with a generic non-zero code
	if logHandler.HasErrored() {
		return 127
	}

	return 0
}
