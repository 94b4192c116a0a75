package report

import (
	"bytes"
	"encoding/json"

	"github.com/jamesainslie/stash/pkg/stash/types"
)

// jsonOutput represents the full JSON output structure.
type jsonOutput struct {
	Run     jsonRun         `json:"run"`
	Sources []SourceSummary `json:"sources"`
}

// jsonRun represents the run summary in JSON output.
type jsonRun struct {
	Status      string   `json:"status"`
	Generation  string   `json:"generation"`
	Destination string   `json:"destination"`
	Archived    bool     `json:"archived"`
	FilesFound  int64    `json:"files_found"`
	FilesCopied int64    `json:"files_copied"`
	BytesCopied int64    `json:"bytes_copied"`
	BytesHuman  string   `json:"bytes_human"`
	Errors      int64    `json:"errors"`
	Pruned      []string `json:"pruned,omitempty"`
	Duration    string   `json:"duration"`
	Warnings    []string `json:"warnings,omitempty"`
}

// JSONFormatter formats the run summary as a single indented JSON object.
type JSONFormatter struct{}

// Format writes the formatted summary to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	status := "completed"
	switch {
	case r.Interrupted:
		status = "interrupted"
	case r.Stats.Errors > 0:
		status = "completed-with-errors"
	}

	sources := r.Sources
	if sources == nil {
		sources = []SourceSummary{}
	}

	output := jsonOutput{
		Run: jsonRun{
			Status:      status,
			Generation:  r.Stats.Generation,
			Destination: r.Destination,
			Archived:    r.Stats.Archived,
			FilesFound:  r.Stats.FilesFound,
			FilesCopied: r.Stats.FilesCopied,
			BytesCopied: r.Stats.BytesCopied,
			BytesHuman:  types.FormatSize(r.Stats.BytesCopied),
			Errors:      r.Stats.Errors,
			Pruned:      r.Stats.Pruned,
			Duration:    r.Stats.Duration.Round(durationPrecision).String(),
			Warnings:    r.Stats.Warnings,
		},
		Sources: sources,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
