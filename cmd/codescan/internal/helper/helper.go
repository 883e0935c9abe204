// Package helper provides helper functions for the codescan CLI.
package helper

import (
	"fmt"
	"io"
	"os"

	"github.com/codescan-io/codescan/internal/output"
	"github.com/codescan-io/codescan/pkg/models"
	"golang.org/x/term"
)

// PrintResult writes results in the given format to outputPath, or to stdout
// when it is empty.
func PrintResult(stdout io.Writer, outputPath, format string, results []models.ScanResult) error {
	termWidth := 0
	writer := stdout

	if outputPath != "" { // Output is definitely a file
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		writer = f
	} else if stdoutAsFile, ok := stdout.(*os.File); ok { // Output might be a terminal
		if w, _, err := term.GetSize(int(stdoutAsFile.Fd())); err == nil {
			termWidth = w
		}
	}

	return output.PrintResult(results, format, writer, termWidth)
}
