// Package walker enumerates the files under each source root, applying
// exclusion rules, and produces the copy plan for one backup run.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/charlievieth/fastwalk"
	"github.com/jamesainslie/stash/pkg/stash/exclude"
	"github.com/jamesainslie/stash/pkg/stash/types"
)

// Walker performs parallel enumeration of a source root using fastwalk.
// Excluded directories are skipped outright so their subtrees are never
// descended into; files are re-checked against the matcher individually.
type Walker struct {
	matcher *exclude.Matcher

	// Atomic counters for thread-safe progress accounting.
	dirsWalked  atomic.Int64
	filesWalked atomic.Int64

	// entries and walkErrors collect results without stopping the walk.
	entries   []types.Entry
	entriesMu sync.Mutex

	walkErrors []types.WalkError
	errorsMu   sync.Mutex
}

// New creates a Walker that applies the given exclusion matcher.
// A nil matcher excludes nothing.
func New(matcher *exclude.Matcher) *Walker {
	return &Walker{matcher: matcher}
}

// Enumerate walks one source root and returns its manifest entries.
// Per-entry access errors are collected, not fatal; the returned error is
// non-nil only when the root itself is invalid or the walk cannot start.
func (w *Walker) Enumerate(ctx context.Context, root string) ([]types.Entry, []types.WalkError, error) {
	absRoot, err := validateRoot(root)
	if err != nil {
		return nil, nil, err
	}

	// Entries are re-rooted at the source root's parent so the root
	// directory itself appears at the destination.
	parent := filepath.Dir(absRoot)

	w.entries = nil
	w.walkErrors = nil

	conf := fastwalk.Config{
		Follow: false, // don't follow symlinks
	}

	done := make(chan struct{})
	walkCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-walkCtx.Done()
		close(done)
	}()

	walkErr := fastwalk.Walk(&conf, absRoot, w.callback(parent, done))
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, fastwalk.ErrSkipFiles) {
		return nil, nil, fmt.Errorf("walking %s: %w", absRoot, walkErr)
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}

	return w.entries, w.walkErrors, nil
}

// DirsWalked returns the number of directories traversed so far.
func (w *Walker) DirsWalked() int64 { return w.dirsWalked.Load() }

// FilesWalked returns the number of files examined so far.
func (w *Walker) FilesWalked() int64 { return w.filesWalked.Load() }

// callback returns the fastwalk callback for one root.
func (w *Walker) callback(parent string, done <-chan struct{}) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-done:
			return fastwalk.ErrSkipFiles
		default:
		}

		// Per-entry access errors are recorded and the walk continues.
		if err != nil {
			w.addError(path, err)
			return nil
		}

		// The matcher evaluates the literal absolute path; paths that
		// happen to contain glob metacharacters are never reinterpreted
		// as patterns.
		if w.matcher.Match(path) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			w.dirsWalked.Add(1)
			return nil
		}

		if d.Type().IsRegular() {
			w.processFile(parent, path, d)
		}
		return nil
	}
}

// processFile stats a regular file and records its manifest entry.
func (w *Walker) processFile(parent, path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		w.addError(path, err)
		return
	}

	rel, err := filepath.Rel(parent, path)
	if err != nil {
		w.addError(path, err)
		return
	}

	w.filesWalked.Add(1)

	w.entriesMu.Lock()
	w.entries = append(w.entries, types.Entry{
		Path:    path,
		RelPath: rel,
		Size:    info.Size(),
	})
	w.entriesMu.Unlock()
}

// addError records a non-fatal walk error thread-safely.
func (w *Walker) addError(path string, err error) {
	w.errorsMu.Lock()
	w.walkErrors = append(w.walkErrors, types.WalkError{
		Path:  path,
		Error: err.Error(),
	})
	w.errorsMu.Unlock()
}

// validateRoot resolves a source root to absolute and verifies it is an
// existing directory.
func validateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("source root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source root %s: not a directory", abs)
	}
	return abs, nil
}
