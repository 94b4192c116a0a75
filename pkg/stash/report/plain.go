package report

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/jamesainslie/stash/pkg/stash/types"
)

// PlainFormatter formats the run summary as simple labelled lines.
// It produces plain text output suitable for scripting, cron mail and
// log capture. No colors or styling are applied.
type PlainFormatter struct{}

// Format writes the formatted summary to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)

	status := "completed"
	switch {
	case r.Interrupted:
		status = "interrupted"
	case r.Stats.Errors > 0:
		status = fmt.Sprintf("completed with %d errors", r.Stats.Errors)
	}

	rows := [][2]string{
		{"status", status},
		{"generation", r.Stats.Generation},
		{"destination", r.Destination},
		{"files copied", fmt.Sprintf("%d / %d", r.Stats.FilesCopied, r.Stats.FilesFound)},
		{"bytes copied", types.FormatSize(r.Stats.BytesCopied)},
		{"duration", r.Stats.Duration.Round(durationPrecision).String()},
	}
	if r.Stats.Archived {
		rows = append(rows, [2]string{"archived", "yes"})
	}
	for _, name := range r.Stats.Pruned {
		rows = append(rows, [2]string{"pruned", name})
	}

	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}

	for _, src := range r.Sources {
		line := fmt.Sprintf("%s (%d files", src.Path, src.FilesFound)
		if src.WalkErrors > 0 {
			line += fmt.Sprintf(", %d walk errors", src.WalkErrors)
		}
		line += ")"
		if _, err := fmt.Fprintf(tw, "source:\t%s\n", line); err != nil {
			return err
		}
	}

	for _, warning := range r.Stats.Warnings {
		if _, err := fmt.Fprintf(tw, "warning:\t%s\n", warning); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
}

// Ensure PlainFormatter implements Formatter.
var _ Formatter = (*PlainFormatter)(nil)
