// Package testcmd runs the codescan cli in-process for tests.
package testcmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/codescan-io/codescan/cmd/codescan/internal/cmd"
	"github.com/urfave/cli/v3"
)

// CommandsUnderTest should be set in TestMain by every cmd package test
var CommandsUnderTest []cmd.CommandBuilder

// fetchCommandsToTest returns the commands that should be tested, ensuring that
// the default "scan" command is included to avoid a panic
func fetchCommandsToTest() []cmd.CommandBuilder {
	for _, builder := range CommandsUnderTest {
		command := builder(nil, nil)

		if command.Name == "scan" {
			return CommandsUnderTest
		}
	}

	return append(CommandsUnderTest, func(_, _ io.Writer) *cli.Command {
		return &cli.Command{
			Name: "scan",
			Action: func(_ context.Context, _ *cli.Command) error {
				return errors.New("<this test is unexpectedly calling the default scan command>")
			},
		}
	})
}

// Run runs the cli with the arguments of tc, failing the test if it does
// not exit with tc.Exit, and returns what was written to stdout and stderr.
func Run(t *testing.T, tc Case) (string, string) {
	t.Helper()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	ec := cmd.Run(tc.Args, stdout, stderr, fetchCommandsToTest())

	if ec != tc.Exit {
		t.Errorf("cli exited with code %d, not %d\nstdout:\n%s\nstderr:\n%s", ec, tc.Exit, stdout, stderr)
	}

	return stdout.String(), stderr.String()
}
