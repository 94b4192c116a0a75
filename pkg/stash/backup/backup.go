// Package backup orchestrates a complete backup run: precondition checks,
// enumeration, copying, optional compression, retention pruning, journaling
// and notification. Per-file problems accumulate into the run summary; only
// configuration and precondition failures abort a run.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/archive"
	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/jamesainslie/stash/pkg/stash/copier"
	"github.com/jamesainslie/stash/pkg/stash/exclude"
	"github.com/jamesainslie/stash/pkg/stash/generation"
	"github.com/jamesainslie/stash/pkg/stash/journal"
	"github.com/jamesainslie/stash/pkg/stash/logging"
	"github.com/jamesainslie/stash/pkg/stash/notify"
	"github.com/jamesainslie/stash/pkg/stash/report"
	"github.com/jamesainslie/stash/pkg/stash/retention"
	"github.com/jamesainslie/stash/pkg/stash/types"
	"github.com/jamesainslie/stash/pkg/stash/walker"
)

// ErrPrecondition marks failures detected before any file is touched.
var ErrPrecondition = errors.New("precondition failed")

// Runner executes backup runs for one configuration.
type Runner struct {
	cfg    *config.Config
	logger *logging.Logger

	// OnProgress, when set, receives throttled copy progress snapshots.
	OnProgress func(types.Progress)

	// now is the clock used for generation naming.
	now func() time.Time
}

// NewRunner creates a Runner for the given configuration.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logging.Get("backup"),
		now:    time.Now,
	}
}

// Run executes one backup run. The returned result is non-nil whenever a
// generation was produced, even if individual files failed; the returned
// error is non-nil only for configuration or precondition failures, or
// cancellation.
func (r *Runner) Run(ctx context.Context) (*report.Result, error) {
	started := r.now()

	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := r.checkPreconditions(); err != nil {
		return nil, err
	}

	matcher, err := exclude.Compile(exclude.WithDefaults(r.cfg.Exclude))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPrecondition, err)
	}

	kind := generation.KindDirectory
	if r.cfg.Compress.Enabled {
		kind = generation.KindArchive
	}

	// Bound disk usage before adding a new generation.
	prePruned, err := retention.Prune(r.cfg.Destination, kind, r.cfg.RetainVersions)
	if err != nil {
		r.logger.Warn("pre-run prune failed", "error", err)
	}
	for _, name := range prePruned {
		r.logger.Info("pruned old generation", "name", name)
	}

	manifest, sources, warnings, err := r.enumerate(ctx, matcher)
	if err != nil {
		result := &report.Result{Destination: r.cfg.Destination}
		result.Stats = types.RunStats{Started: started, Duration: r.now().Sub(started)}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Interrupted = true
		}
		r.record(journal.StatusFailed, result)
		r.notifyFailure(result.Stats, err)
		return result, err
	}
	r.logger.Info("enumeration complete",
		"files", manifest.TotalFiles, "bytes", manifest.TotalBytes)

	stats := types.RunStats{Started: started, Warnings: warnings}
	result := &report.Result{Sources: sources, Destination: r.cfg.Destination}

	copyRes, genName, genWarnings, err := r.produceGeneration(ctx, manifest, kind)
	stats.Warnings = append(stats.Warnings, genWarnings...)
	if err != nil {
		stats.Duration = r.now().Sub(started)
		result.Stats = stats
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Interrupted = true
		}
		r.record(journal.StatusFailed, result)
		r.notifyFailure(stats, err)
		return result, err
	}

	stats.Generation = genName
	stats.Archived = kind == generation.KindArchive
	stats.FilesFound = manifest.TotalFiles
	stats.FilesCopied = copyRes.FilesCopied
	stats.BytesCopied = copyRes.BytesCopied
	for _, ce := range copyRes.Errors {
		stats.Warnings = append(stats.Warnings,
			fmt.Sprintf("copy failed: %s: %s", ce.Path, ce.Error))
	}
	stats.Errors = int64(len(copyRes.Errors))
	for _, src := range sources {
		stats.Errors += src.WalkErrors
	}

	// Bound the set again now that the new generation exists.
	postPruned, err := retention.Prune(r.cfg.Destination, kind, r.cfg.RetainVersions)
	if err != nil {
		r.logger.Warn("post-run prune failed", "error", err)
		stats.Warnings = append(stats.Warnings, fmt.Sprintf("prune: %v", err))
	}
	stats.Pruned = append(prePruned, postPruned...)

	stats.Duration = r.now().Sub(started)
	result.Stats = stats

	status := journal.StatusCompleted
	if stats.Errors > 0 {
		status = journal.StatusCompletedWithErrors
	}
	r.record(status, result)
	r.notifySuccess(stats)

	r.logger.Info("run complete", "generation", genName,
		"files", stats.FilesCopied, "errors", stats.Errors,
		"duration", stats.Duration)
	return result, nil
}

// checkPreconditions verifies sources, destination and free space.
func (r *Runner) checkPreconditions() error {
	for _, src := range r.cfg.Sources {
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("%w: source %s: %v", ErrPrecondition, src, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("%w: source %s is not a directory", ErrPrecondition, src)
		}
	}

	if err := os.MkdirAll(r.cfg.Destination, 0o755); err != nil {
		return fmt.Errorf("%w: destination %s: %v", ErrPrecondition, r.cfg.Destination, err)
	}

	if r.cfg.MinFreeSpace != "" {
		required, err := types.ParseSize(r.cfg.MinFreeSpace)
		if err != nil {
			return fmt.Errorf("%w: min_free_space: %v", ErrPrecondition, err)
		}
		free, err := freeSpace(r.cfg.Destination)
		if err != nil {
			return fmt.Errorf("%w: checking free space: %v", ErrPrecondition, err)
		}
		if free < required {
			return fmt.Errorf("%w: destination has %s free, %s required",
				ErrPrecondition, types.FormatSize(free), types.FormatSize(required))
		}
	}
	return nil
}

// enumerate walks every source root and assembles the copy plan.
func (r *Runner) enumerate(ctx context.Context, matcher *exclude.Matcher) (*types.Manifest, []report.SourceSummary, []string, error) {
	manifest := types.NewManifest()
	var sources []report.SourceSummary
	var warnings []string

	w := walker.New(matcher)
	for _, root := range r.cfg.Sources {
		entries, walkErrs, err := w.Enumerate(ctx, root)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("enumerating %s: %w", root, err)
		}

		manifest.Add(root, entries)
		sources = append(sources, report.SourceSummary{
			Path:       root,
			FilesFound: int64(len(entries)),
			WalkErrors: int64(len(walkErrs)),
		})
		for _, we := range walkErrs {
			warnings = append(warnings,
				fmt.Sprintf("walk error: %s: %s", we.Path, we.Error))
		}
	}
	return manifest, sources, warnings, nil
}

// produceGeneration copies the manifest into a new generation at the
// destination and returns the copy outcome, the generation name and any
// non-fatal warnings raised while producing it.
func (r *Runner) produceGeneration(ctx context.Context, manifest *types.Manifest, kind generation.Kind) (*types.CopyResult, string, []string, error) {
	ts := r.now()
	name := generation.Name(kind, ts)
	finalPath := filepath.Join(r.cfg.Destination, name)

	c := copier.New(copier.Options{
		Workers:    r.cfg.Workers,
		OnProgress: r.OnProgress,
	})

	if kind == generation.KindDirectory {
		// Copy into a hidden partial directory, then promote with a
		// rename so a crashed run never masquerades as a generation.
		partial := filepath.Join(r.cfg.Destination, "."+name+".partial")
		res, err := c.Copy(ctx, manifest, partial)
		if err != nil {
			_ = os.RemoveAll(partial)
			return nil, "", nil, err
		}
		if err := os.Rename(partial, finalPath); err != nil {
			_ = os.RemoveAll(partial)
			return nil, "", nil, fmt.Errorf("promoting generation: %w", err)
		}
		if err := generation.WriteMarker(finalPath); err != nil {
			r.logger.Warn("could not write completion marker", "error", err)
		}
		return res, name, nil, nil
	}

	// Archive kind: copy to a staging tree, then compress into place.
	stagedDir := r.stagingDir(ts)
	res, err := c.Copy(ctx, manifest, stagedDir)
	if err != nil {
		_ = os.RemoveAll(stagedDir)
		return nil, "", nil, err
	}

	fin := archive.New(r.cfg.Compress.Tool, r.cfg.Compress.ToolPath)
	partial := filepath.Join(r.cfg.Destination, "."+name+".partial")

	var native bool
	if r.cfg.Staging.Keep {
		native, err = fin.Compress(ctx, stagedDir, partial)
	} else {
		native, err = fin.Finalize(ctx, stagedDir, partial)
	}
	if err != nil {
		_ = os.Remove(partial)
		return nil, "", nil, fmt.Errorf("compressing generation: %w", err)
	}

	var warnings []string
	if r.cfg.Compress.Tool == archive.ToolExternal && native {
		warnings = append(warnings, "external compressor unavailable, used native gzip")
		r.logger.Warn("external compressor unavailable, used native gzip")
	}

	if err := os.Rename(partial, finalPath); err != nil {
		_ = os.Remove(partial)
		return nil, "", warnings, fmt.Errorf("promoting archive: %w", err)
	}
	return res, name, warnings, nil
}

// stagingDir returns where the uncompressed tree is copied before
// archiving.
func (r *Runner) stagingDir(ts time.Time) string {
	base := r.cfg.Staging.Dir
	if !r.cfg.Staging.Enabled || base == "" {
		base = r.cfg.Destination
	}
	return filepath.Join(base, "."+generation.Name(generation.KindDirectory, ts)+".staging")
}

// record persists the run to the journal when journaling is enabled.
func (r *Runner) record(status journal.Status, result *report.Result) {
	if !r.cfg.Journal.Enabled {
		return
	}

	dir := r.cfg.Journal.Path
	if dir == "" {
		var err error
		if dir, err = config.JournalDir(); err != nil {
			r.logger.Warn("journal disabled", "error", err)
			return
		}
	}

	j, err := journal.New(dir)
	if err != nil {
		r.logger.Warn("journal disabled", "error", err)
		return
	}
	if err := j.EnsureDir(); err != nil {
		r.logger.Warn("journal disabled", "error", err)
		return
	}

	entry := journal.Entry{
		Status:      status,
		Generation:  result.Stats.Generation,
		Archived:    result.Stats.Archived,
		Pruned:      result.Stats.Pruned,
		Warnings:    result.Stats.Warnings,
		DurationSec: result.Stats.Duration.Seconds(),
		Summary: journal.Summary{
			FilesFound:  result.Stats.FilesFound,
			FilesCopied: result.Stats.FilesCopied,
			BytesCopied: result.Stats.BytesCopied,
			Errors:      result.Stats.Errors,
		},
	}
	for _, src := range result.Sources {
		entry.Sources = append(entry.Sources, journal.SourceRecord{
			Path:       src.Path,
			FilesFound: src.FilesFound,
			WalkErrors: src.WalkErrors,
		})
	}

	if _, err := j.Record(entry); err != nil {
		r.logger.Warn("could not journal run", "error", err)
	}

	if r.cfg.Journal.RetentionDays > 0 {
		if err := j.Cleanup(r.cfg.Journal.RetentionDays); err != nil {
			r.logger.Warn("journal cleanup failed", "error", err)
		}
	}
}

// notifySuccess emails the run summary when notification is enabled.
// Delivery problems never fail the run.
func (r *Runner) notifySuccess(stats types.RunStats) {
	if !r.cfg.Notify.Enabled {
		return
	}
	m, err := notify.NewMailer(r.cfg.Notify)
	if err != nil {
		r.logger.Warn("notification skipped", "error", err)
		return
	}
	if err := m.SendRunReport(stats, r.cfg.Destination); err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}

// notifyFailure emails the failure reason when notification is enabled.
func (r *Runner) notifyFailure(stats types.RunStats, reason error) {
	if !r.cfg.Notify.Enabled {
		return
	}
	m, err := notify.NewMailer(r.cfg.Notify)
	if err != nil {
		r.logger.Warn("notification skipped", "error", err)
		return
	}
	if err := m.SendRunFailure(stats, r.cfg.Destination, reason); err != nil {
		r.logger.Warn("notification failed", "error", err)
	}
}
