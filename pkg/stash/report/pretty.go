package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// PrettyFormatter formats the run summary with colors and styling using
// lipgloss. It produces a visually appealing output suitable for terminal
// display.
type PrettyFormatter struct{}

// Format writes the formatted summary to the buffer.
func (f *PrettyFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatSources(r))

	w.WriteString(f.formatFooter(r))

	if len(r.Stats.Warnings) > 0 {
		w.WriteString("\n")
		w.WriteString(f.formatWarnings(r.Stats.Warnings))
	}

	return nil
}

// formatHeader builds the header box with the run outcome.
func (f *PrettyFormatter) formatHeader(r *Result) string {
	var lines []string

	genLabel := LabelStyle.Render("Generation:")
	genValue := ValueStyle.Render(r.Stats.Generation)
	lines = append(lines, fmt.Sprintf("%s %s", genLabel, genValue))

	destLabel := LabelStyle.Render("Destination:")
	destValue := ValueStyle.Render(r.Destination)
	lines = append(lines, fmt.Sprintf("%s %s  %s", destLabel, destValue, f.formatStatus(r)))

	if r.Interrupted {
		interruptedStyle := WarningStyle.Bold(true)
		lines = append(lines, interruptedStyle.Render("Backup interrupted by user"))
	}

	content := strings.Join(lines, "\n")
	return HeaderBox.Render(content)
}

// formatStatus returns a styled string indicating the run outcome.
func (f *PrettyFormatter) formatStatus(r *Result) string {
	if r.Interrupted {
		return WarningStyle.Render("interrupted")
	}
	if r.Stats.Errors > 0 {
		return ErrorStyle.Render(fmt.Sprintf("%d errors", r.Stats.Errors))
	}
	return SuccessStyle.Render("ok")
}

// formatSources builds the per-source lines.
func (f *PrettyFormatter) formatSources(r *Result) string {
	if len(r.Sources) == 0 {
		return MutedStyle.Render("  No sources backed up\n")
	}

	var sb strings.Builder
	for _, src := range r.Sources {
		pathStr := ValueStyle.Render(src.Path)
		countStr := MutedStyle.Render(fmt.Sprintf("%d files", src.FilesFound))
		line := fmt.Sprintf("  %s  %s", pathStr, countStr)
		if src.WalkErrors > 0 {
			line += "  " + ErrorStyle.Render(fmt.Sprintf("%d walk errors", src.WalkErrors))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatFooter builds the footer box with the run totals.
func (f *PrettyFormatter) formatFooter(r *Result) string {
	var parts []string

	filesLabel := LabelStyle.Render("Files:")
	filesValue := ValueStyle.Render(fmt.Sprintf("%d/%d", r.Stats.FilesCopied, r.Stats.FilesFound))
	parts = append(parts, fmt.Sprintf("%s %s", filesLabel, filesValue))

	sizeLabel := LabelStyle.Render("Copied:")
	sizeValue := SizeStyle.Render(humanize.IBytes(uint64(r.Stats.BytesCopied)))
	parts = append(parts, fmt.Sprintf("%s %s", sizeLabel, sizeValue))

	durLabel := LabelStyle.Render("Duration:")
	durValue := ValueStyle.Render(r.Stats.Duration.Round(durationPrecision).String())
	parts = append(parts, fmt.Sprintf("%s %s", durLabel, durValue))

	if len(r.Stats.Pruned) > 0 {
		prunedLabel := LabelStyle.Render("Pruned:")
		prunedValue := MutedStyle.Render(fmt.Sprintf("%d generations", len(r.Stats.Pruned)))
		parts = append(parts, fmt.Sprintf("%s %s", prunedLabel, prunedValue))
	}

	content := strings.Join(parts, "  ")
	return FooterBox.Render(content)
}

// formatWarnings builds a warning block.
func (f *PrettyFormatter) formatWarnings(warnings []string) string {
	var sb strings.Builder

	titleStyle := WarningStyle.Bold(true)
	sb.WriteString(titleStyle.Render("Warnings:"))
	sb.WriteString("\n")

	for _, warning := range warnings {
		sb.WriteString(WarningStyle.Render("  " + warning))
		sb.WriteString("\n")
	}

	return sb.String()
}

func init() {
	Register("pretty", func() Formatter {
		return &PrettyFormatter{}
	})
}

// Ensure PrettyFormatter implements Formatter.
var _ Formatter = (*PrettyFormatter)(nil)
