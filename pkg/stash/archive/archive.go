// Package archive turns a fully populated backup directory into a single
// compressed tar.gz artifact. Compression runs either in-process or through
// an external tar-compatible tool; when the external tool is unavailable or
// fails, the in-process path takes over so a configured-but-broken tool
// never costs a backup.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/jamesainslie/stash/pkg/stash/logging"
)

// Tool selects the compression strategy.
const (
	ToolNative   = "native"
	ToolExternal = "external"
)

// DefaultToolPath is the external tool used when none is configured.
const DefaultToolPath = "tar"

// Finalizer compresses a staged backup directory into an archive.
type Finalizer struct {
	tool     string
	toolPath string
	logger   *logging.Logger
}

// New creates a Finalizer. An empty or unknown tool selects the native
// strategy; toolPath defaults to "tar" for the external strategy.
func New(tool, toolPath string) *Finalizer {
	if toolPath == "" {
		toolPath = DefaultToolPath
	}
	return &Finalizer{
		tool:     tool,
		toolPath: toolPath,
		logger:   logging.Get("archive"),
	}
}

// Finalize compresses srcDir into destArchive and, on success, removes
// srcDir. It reports whether the native strategy produced the archive
// (either selected directly or as a fallback).
func (f *Finalizer) Finalize(ctx context.Context, srcDir, destArchive string) (bool, error) {
	native, err := f.Compress(ctx, srcDir, destArchive)
	if err != nil {
		return native, err
	}

	if err := os.RemoveAll(srcDir); err != nil {
		// The archive is good; a leftover staging tree is only noise.
		f.logger.Warn("could not remove staged directory", "dir", srcDir, "error", err)
	}
	return native, nil
}

// Compress writes destArchive from the contents of srcDir. Entry paths in
// the archive are relative to srcDir.
func (f *Finalizer) Compress(ctx context.Context, srcDir, destArchive string) (bool, error) {
	if f.tool == ToolExternal {
		err := f.compressExternal(ctx, srcDir, destArchive)
		if err == nil {
			return false, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		f.logger.Warn("external compression failed, using native",
			"tool", f.toolPath, "error", err)
	}

	if err := f.compressNative(ctx, srcDir, destArchive); err != nil {
		return true, err
	}
	return true, nil
}

// compressExternal shells out to a tar-compatible tool. The archive is
// created from srcDir's parent so entry paths stay relative.
func (f *Finalizer) compressExternal(ctx context.Context, srcDir, destArchive string) error {
	toolPath, err := exec.LookPath(f.toolPath)
	if err != nil {
		return fmt.Errorf("locating compression tool %q: %w", f.toolPath, err)
	}

	args := []string{"-czf", destArchive, "-C", srcDir, "."}
	cmd := exec.CommandContext(ctx, toolPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// A partial archive from a failed run must not survive.
		_ = os.Remove(destArchive)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with code %d: %s",
				f.toolPath, exitErr.ExitCode(), string(output))
		}
		return fmt.Errorf("running %s: %w", f.toolPath, err)
	}
	return nil
}

// compressNative streams srcDir through an in-process tar.gz writer.
func (f *Finalizer) compressNative(ctx context.Context, srcDir, destArchive string) error {
	out, err := os.Create(destArchive)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		return addEntry(tw, srcDir, path, d)
	})

	// Close in reverse order so trailer and gzip footer both land.
	if err := tw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := gz.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}

	if walkErr != nil {
		_ = os.Remove(destArchive)
		return fmt.Errorf("writing archive: %w", walkErr)
	}
	return nil
}

// addEntry writes one filesystem entry to the tar stream with a path
// relative to root.
func addEntry(tw *tar.Writer, root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	// Sockets, devices and other irregular entries have no place in a
	// file backup.
	if !info.Mode().IsRegular() && !info.IsDir() {
		return nil
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	if _, err := io.Copy(tw, in); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return nil
}
