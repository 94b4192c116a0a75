// Package journal persists a record of every backup run.
package journal

import "time"

// Status classifies how a run finished.
type Status string

const (
	// StatusCompleted means every planned file was copied.
	StatusCompleted Status = "completed"
	// StatusCompletedWithErrors means the run produced a generation but
	// some files could not be copied or enumerated.
	StatusCompletedWithErrors Status = "completed-with-errors"
	// StatusFailed means no generation was produced.
	StatusFailed Status = "failed"
)

// SourceRecord captures the per-source outcome of a run.
type SourceRecord struct {
	Path       string `json:"path"`
	FilesFound int64  `json:"files_found"`
	WalkErrors int64  `json:"walk_errors"`
}

// Entry represents a single journaled run.
type Entry struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	Status      Status         `json:"status"`
	Generation  string         `json:"generation,omitempty"`
	Archived    bool           `json:"archived"`
	Sources     []SourceRecord `json:"sources"`
	Summary     Summary        `json:"summary"`
	Pruned      []string       `json:"pruned,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	DurationSec float64        `json:"duration_seconds"`
}

// Summary contains run totals.
type Summary struct {
	FilesFound  int64 `json:"files_found"`
	FilesCopied int64 `json:"files_copied"`
	BytesCopied int64 `json:"bytes_copied"`
	Errors      int64 `json:"errors"`
}
