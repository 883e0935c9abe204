package helper

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/codescan-io/codescan/internal/cmdlogger"
	"github.com/codescan-io/codescan/internal/output"
	"github.com/urfave/cli/v3"
)

var scopes = []string{"project", "file"}

// BuildScanFlags returns the flags of the scan command
func BuildScanFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:      "config",
			Usage:     "set/override config file",
			TakesFile: true,
		},
		&cli.StringSliceFlag{
			Name:      "env-file",
			Usage:     "load environment variables from the given .env file; defaults to .env in the working directory",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:      "file",
			Usage:     "the file the scan starts from when scanning a directory; it is always sent, even if ignored",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "sets the output format; value can be: " + strings.Join(output.Format(), ", "),
			Value:   "table",
			Action: func(_ context.Context, _ *cli.Command, s string) error {
				if slices.Contains(output.Format(), s) {
					if output.IsMachineReadable(s) {
						cmdlogger.SendEverythingToStderr()
					}

					return nil
				}

				return fmt.Errorf("unsupported output format \"%s\" - must be one of: %s", s, strings.Join(output.Format(), ", "))
			},
		},
		&cli.StringFlag{
			Name:      "output",
			Usage:     "saves the result to the given file path",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  "verbosity",
			Usage: "specify the level of information that should be provided during runtime; value can be: " + strings.Join(cmdlogger.Levels(), ", "),
			Value: "info",
			Action: func(_ context.Context, _ *cli.Command, s string) error {
				lvl, err := cmdlogger.ParseLevel(s)

				if err != nil {
					return err
				}

				cmdlogger.SetLevel(lvl)

				return nil
			},
		},
		&cli.StringFlag{
			Name:  "scope",
			Usage: "whether the service should report on the whole project or only the selected file; value can be: " + strings.Join(scopes, ", "),
			Action: func(_ context.Context, _ *cli.Command, s string) error {
				if slices.Contains(scopes, s) {
					return nil
				}

				return fmt.Errorf("unsupported scope \"%s\" - must be one of: %s", s, strings.Join(scopes, ", "))
			},
		},
		&cli.StringFlag{
			Name:      "build-log",
			Usage:     "attach the given build or test log to the payload",
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:  "test-generation",
			Usage: "request test generation, which also sends the project's compiled output",
		},
		&cli.StringSliceFlag{
			Name:  "exclude",
			Usage: "additional ignore patterns, in the same format as the tool ignore file",
		},
		&cli.IntFlag{
			Name:  "parallel",
			Usage: "how many projects to scan at once",
			Value: 1,
			Action: func(_ context.Context, _ *cli.Command, n int) error {
				if n < 1 {
					return fmt.Errorf("--parallel must be at least 1, got %d", n)
				}

				return nil
			},
		},
	}
}
