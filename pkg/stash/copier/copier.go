// Package copier executes the copy plan for one backup run: each manifest
// entry is re-rooted under the destination and copied by a bounded worker
// pool, with cumulative progress and per-file error accounting.
package copier

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/types"
)

// DefaultWorkers is the copy pool size when the caller does not set one.
const DefaultWorkers = 4

// retryDelay is the pause before the single retry of a failed file copy.
const retryDelay = 250 * time.Millisecond

// Options configures a Copier.
type Options struct {
	// Workers is the number of concurrent copy workers. Values < 1 fall
	// back to DefaultWorkers.
	Workers int

	// OnProgress, when set, receives throttled progress snapshots.
	OnProgress func(types.Progress)
}

// Copier copies manifest entries to a destination root. A Copier is good
// for one Copy call at a time.
type Copier struct {
	opts Options

	// Run-scoped counters, updated atomically by the workers.
	filesCopied atomic.Int64
	bytesCopied atomic.Int64
	errorCount  atomic.Int64

	totalFiles int64
	totalBytes int64

	currentPath atomic.Value

	copyErrors []types.CopyError
	errorsMu   sync.Mutex

	// lastProgress throttles progress callbacks.
	lastProgress atomic.Int64
}

// New creates a Copier with the given options.
func New(opts Options) *Copier {
	if opts.Workers < 1 {
		opts.Workers = DefaultWorkers
	}
	c := &Copier{opts: opts}
	c.currentPath.Store("")
	return c
}

// Copy copies every manifest entry into destRoot, preserving each entry's
// relative path. Per-file failures are recorded and the run continues;
// the returned error is non-nil only when the destination root is unusable
// or the context is cancelled.
func (c *Copier) Copy(ctx context.Context, manifest *types.Manifest, destRoot string) (*types.CopyResult, error) {
	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating destination root: %w", err)
	}

	c.totalFiles = manifest.TotalFiles
	c.totalBytes = manifest.TotalBytes
	c.reportProgressForce()

	work := make(chan types.Entry)
	var wg sync.WaitGroup

	for i := 0; i < c.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range work {
				c.copyEntry(entry, destRoot)
			}
		}()
	}

	var ctxErr error
feed:
	for _, entry := range manifest.All() {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case work <- entry:
		}
	}
	close(work)
	wg.Wait()

	c.reportProgressForce()

	if ctxErr != nil {
		return nil, ctxErr
	}

	return &types.CopyResult{
		FilesCopied: c.filesCopied.Load(),
		BytesCopied: c.bytesCopied.Load(),
		Errors:      c.copyErrors,
	}, nil
}

// copyEntry copies one file, retrying once on failure before recording the
// error and moving on.
func (c *Copier) copyEntry(entry types.Entry, destRoot string) {
	dest := filepath.Join(destRoot, entry.RelPath)
	c.currentPath.Store(entry.Path)

	written, err := copyFile(entry.Path, dest)
	if err != nil {
		time.Sleep(retryDelay)
		written, err = copyFile(entry.Path, dest)
	}
	if err != nil {
		c.errorCount.Add(1)
		c.errorsMu.Lock()
		c.copyErrors = append(c.copyErrors, types.CopyError{
			Path:  entry.Path,
			Error: err.Error(),
		})
		c.errorsMu.Unlock()
		c.reportProgress()
		return
	}

	c.filesCopied.Add(1)
	// Bytes are accounted from what was actually copied, tolerating size
	// drift on files mutated between scan and copy.
	c.bytesCopied.Add(written)
	c.reportProgress()
}

// copyFile copies src to dest, creating intermediate directories on demand
// and preserving the source file mode. It returns the bytes written.
func copyFile(src, dest string) (int64, error) {
	// Already-existing directories are not an error; workers may race on
	// shared parents.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("creating directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return written, err
	}
	if err := out.Close(); err != nil {
		return written, err
	}

	if info, err := in.Stat(); err == nil {
		_ = os.Chmod(dest, info.Mode())
	}

	return written, nil
}

// Snapshot returns the current progress counters.
func (c *Copier) Snapshot() types.Progress {
	current, _ := c.currentPath.Load().(string)
	return types.Progress{
		FilesCopied: c.filesCopied.Load(),
		BytesCopied: c.bytesCopied.Load(),
		TotalFiles:  c.totalFiles,
		TotalBytes:  c.totalBytes,
		Errors:      c.errorCount.Load(),
		CurrentPath: current,
	}
}

// reportProgress invokes the progress callback, throttled to every 50ms.
func (c *Copier) reportProgress() {
	if c.opts.OnProgress == nil {
		return
	}

	now := time.Now().UnixMilli()
	last := c.lastProgress.Load()
	if now-last < 50 {
		return
	}
	if !c.lastProgress.CompareAndSwap(last, now) {
		return // another worker reported
	}

	c.opts.OnProgress(c.Snapshot())
}

// reportProgressForce invokes the progress callback immediately, bypassing
// the throttle. Used at copy start and end.
func (c *Copier) reportProgressForce() {
	if c.opts.OnProgress == nil {
		return
	}
	c.lastProgress.Store(time.Now().UnixMilli())
	c.opts.OnProgress(c.Snapshot())
}
