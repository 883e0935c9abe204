package main

import (
	"os"

	"github.com/codescan-io/codescan/cmd/codescan/internal/cmd"
	"github.com/codescan-io/codescan/cmd/codescan/scan"
)

func main() {
	exitCode := cmd.Run(
		os.Args,
		os.Stdout,
		os.Stderr,
		[]cmd.CommandBuilder{
			scan.Command,
		},
	)

	os.Exit(exitCode)
}
