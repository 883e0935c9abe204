// Package output renders scan results for people and for other tools.
package output

import (
	"fmt"
	"io"

	"github.com/codescan-io/codescan/pkg/models"
)

var format = []string{"table", "json", "sarif"}

// Format returns the names of the supported output formats.
func Format() []string {
	return format
}

// IsMachineReadable reports whether the format is meant to be parsed, in
// which case nothing else should be written alongside it.
func IsMachineReadable(f string) bool {
	return f == "json" || f == "sarif"
}

type resultPrinter interface {
	// PrintResult prints the results of every scanned project per the
	// logic of the actual reporter
	PrintResult(results []models.ScanResult) error
}

type tableReporter struct {
	writer io.Writer
	// 0 indicates not a terminal output
	terminalWidth int
}

func (r *tableReporter) PrintResult(results []models.ScanResult) error {
	PrintTableResults(results, r.writer, r.terminalWidth)

	return nil
}

type jsonReporter struct {
	writer io.Writer
}

func (r *jsonReporter) PrintResult(results []models.ScanResult) error {
	return PrintJSONResults(results, r.writer)
}

type sarifReporter struct {
	writer io.Writer
}

func (r *sarifReporter) PrintResult(results []models.ScanResult) error {
	return PrintSARIFReport(results, r.writer)
}

func newResultPrinter(format string, writer io.Writer, terminalWidth int) (resultPrinter, error) {
	switch format {
	case "table":
		return &tableReporter{writer, terminalWidth}, nil
	case "json":
		return &jsonReporter{writer}, nil
	case "sarif":
		return &sarifReporter{writer}, nil
	default:
		return nil, fmt.Errorf("%v is not a valid format", format)
	}
}

// PrintResult writes results to writer in the given format.
func PrintResult(results []models.ScanResult, format string, writer io.Writer, terminalWidth int) error {
	r, err := newResultPrinter(format, writer, terminalWidth)
	if err != nil {
		return err
	}

	return r.PrintResult(results)
}
