// Package types provides core data types for the stash backup tool.
// It includes the backup manifest model, run statistics, and utility
// functions for parsing and formatting file sizes.
package types

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Size constants for binary (IEC) units.
const (
	KiB int64 = 1024
	MiB int64 = 1024 * KiB
	GiB int64 = 1024 * MiB
	TiB int64 = 1024 * GiB
)

// Entry is one file discovered under a source root and planned for copy.
// Entries are created during enumeration and consumed once by the copy phase.
type Entry struct {
	// Path is the absolute path to the file.
	Path string `json:"path"`

	// RelPath is the path relative to the source root's parent directory.
	// It is used to reconstruct the directory structure at the destination,
	// so backing up /data/project yields <dest>/project/... at the target.
	RelPath string `json:"rel_path"`

	// Size is the file size in bytes at enumeration time.
	Size int64 `json:"size"`
}

// Manifest is the enumerated, filtered copy plan for one backup run.
// It maps each source root to its discovered entries and carries the
// aggregate totals used for progress accounting.
type Manifest struct {
	// Entries maps a source root to the files discovered beneath it.
	Entries map[string][]Entry `json:"entries"`

	// TotalFiles is the number of files across all source roots.
	TotalFiles int64 `json:"total_files"`

	// TotalBytes is the sum of all entry sizes in bytes.
	TotalBytes int64 `json:"total_bytes"`
}

// NewManifest returns an empty manifest ready to accumulate entries.
func NewManifest() *Manifest {
	return &Manifest{Entries: make(map[string][]Entry)}
}

// Add records the entries enumerated for one source root and updates totals.
func (m *Manifest) Add(root string, entries []Entry) {
	m.Entries[root] = entries
	for _, e := range entries {
		m.TotalFiles++
		m.TotalBytes += e.Size
	}
}

// All returns every entry across all source roots. The per-root order is
// stable; the order across roots follows map iteration and is not.
func (m *Manifest) All() []Entry {
	out := make([]Entry, 0, m.TotalFiles)
	for _, entries := range m.Entries {
		out = append(out, entries...)
	}
	return out
}

// WalkError records a non-fatal error encountered while enumerating files.
type WalkError struct {
	// Path is the file or directory path where the error occurred.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// CopyError records a non-fatal error for a single file during the copy phase.
type CopyError struct {
	// Path is the source path of the file that failed to copy.
	Path string `json:"path"`

	// Error is the error message describing what went wrong.
	Error string `json:"error"`
}

// CopyResult is the outcome of one copy phase.
type CopyResult struct {
	// FilesCopied is the number of files copied successfully.
	FilesCopied int64 `json:"files_copied"`

	// BytesCopied is the total bytes written, measured from each file's
	// on-disk size at copy time rather than the pre-scan size.
	BytesCopied int64 `json:"bytes_copied"`

	// Errors contains the per-file failures. The run continues past them.
	Errors []CopyError `json:"errors,omitempty"`
}

// Progress is a snapshot of copy progress for reporting.
type Progress struct {
	// FilesCopied is the number of files copied so far.
	FilesCopied int64 `json:"files_copied"`

	// BytesCopied is the bytes copied so far.
	BytesCopied int64 `json:"bytes_copied"`

	// TotalFiles is the planned file count from the manifest.
	TotalFiles int64 `json:"total_files"`

	// TotalBytes is the planned byte count from the manifest.
	TotalBytes int64 `json:"total_bytes"`

	// Errors is the per-file error count so far.
	Errors int64 `json:"errors"`

	// CurrentPath is the file currently being copied.
	CurrentPath string `json:"current_path"`
}

// Percent returns percentage complete as copied bytes over planned bytes.
// An empty plan is complete by definition.
func (p Progress) Percent() float64 {
	if p.TotalBytes <= 0 {
		return 100
	}
	pct := float64(p.BytesCopied) * 100 / float64(p.TotalBytes)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// RunStats aggregates the outcome of one backup run for reporting.
type RunStats struct {
	// Generation is the name of the artifact produced by the run.
	Generation string `json:"generation"`

	// Archived reports whether the generation is a compressed archive.
	Archived bool `json:"archived"`

	// FilesFound is the manifest file count.
	FilesFound int64 `json:"files_found"`

	// FilesCopied is the number of files copied successfully.
	FilesCopied int64 `json:"files_copied"`

	// BytesCopied is the total bytes copied.
	BytesCopied int64 `json:"bytes_copied"`

	// Errors is the combined walk and copy error count.
	Errors int64 `json:"errors"`

	// Pruned lists generation names removed by retention during the run.
	Pruned []string `json:"pruned,omitempty"`

	// Started is when the run began.
	Started time.Time `json:"started"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`

	// Warnings contains non-fatal notices (walk errors, copy errors,
	// compressor fallback) for the final report.
	Warnings []string `json:"warnings,omitempty"`
}

// sizePattern matches size strings like "100M", "2G", "500K", "1.5GB", etc.
var sizePattern = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([KMGT]?(?:i?B)?)\s*$`)

// ErrInvalidSize indicates that the size string could not be parsed.
var ErrInvalidSize = errors.New("invalid size format")

// ErrNegativeSize indicates that a negative size value was provided.
var ErrNegativeSize = errors.New("size cannot be negative")

// ParseSize parses a human-readable size string and returns the size in bytes.
// It supports plain byte counts ("1024"), and K/M/G/T suffixes with optional
// B or iB ("100M", "2GiB", "512kb"). Decimal values are truncated to the
// nearest byte.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeSize
	}

	matches := sizePattern.FindStringSubmatch(s)
	if matches == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	suffix := strings.ToUpper(matches[2])
	suffix = strings.TrimSuffix(suffix, "IB")
	suffix = strings.TrimSuffix(suffix, "B")

	var multiplier int64
	switch suffix {
	case "":
		multiplier = 1
	case "K":
		multiplier = KiB
	case "M":
		multiplier = MiB
	case "G":
		multiplier = GiB
	case "T":
		multiplier = TiB
	default:
		return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, suffix)
	}

	return int64(value * float64(multiplier)), nil
}

// FormatSize converts a size in bytes to a human-readable string using
// binary (IEC) units for consistency with common filesystem tools.
func FormatSize(bytes int64) string {
	return humanize.IBytes(uint64(bytes))
}
