package output

import (
	"encoding/json"
	"io"

	"github.com/codescan-io/codescan/pkg/models"
	"github.com/tidwall/pretty"
)

type jsonOutput struct {
	Results    []models.ScanResult `json:"results"`
	IssueCount int                 `json:"issueCount"`
}

// PrintJSONResults writes results to the provided writer in JSON format
func PrintJSONResults(results []models.ScanResult, outputWriter io.Writer) error {
	out := jsonOutput{Results: make([]models.ScanResult, 0, len(results))}

	for _, result := range results {
		if result.Issues == nil {
			result.Issues = []models.Issue{}
		}

		out.Results = append(out.Results, result)
		out.IssueCount += result.IssueCount
	}

	b, err := json.Marshal(out)
	if err != nil {
		return err
	}

	_, err = outputWriter.Write(pretty.PrettyOptions(b, &pretty.Options{Width: 80, Indent: "  "}))

	return err
}
