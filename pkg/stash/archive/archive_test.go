package archive

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// buildStaged creates a staged backup directory to compress.
func buildStaged(t *testing.T, files map[string]string) string {
	t.Helper()
	staged := filepath.Join(t.TempDir(), "staged")
	for rel, content := range files {
		path := filepath.Join(staged, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return staged
}

// readArchive returns the regular-file entries of a tar.gz archive keyed
// by entry name.
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	defer gz.Close()

	entries := make(map[string]string)
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("tar next: %v", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("tar read: %v", err)
		}
		entries[hdr.Name] = string(content)
	}
	return entries
}

func TestNativeCompressRoundTrip(t *testing.T) {
	files := map[string]string{
		"data/a.txt":     "alpha",
		"data/sub/b.txt": "bravo",
	}
	staged := buildStaged(t, files)
	dest := filepath.Join(t.TempDir(), "backup.tar.gz")

	f := New(ToolNative, "")
	native, err := f.Compress(context.Background(), staged, dest)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !native {
		t.Error("expected native strategy")
	}

	entries := readArchive(t, dest)
	if len(entries) != 2 {
		t.Fatalf("expected 2 file entries, got %d: %v", len(entries), entries)
	}
	// Entry names must be relative to the staged root.
	for name, want := range map[string]string{
		"data/a.txt":     "alpha",
		"data/sub/b.txt": "bravo",
	} {
		if entries[name] != want {
			t.Errorf("entry %s = %q, want %q", name, entries[name], want)
		}
	}
}

func TestExternalFallsBackToNative(t *testing.T) {
	staged := buildStaged(t, map[string]string{"data/a.txt": "alpha"})
	dest := filepath.Join(t.TempDir(), "backup.tar.gz")

	f := New(ToolExternal, "no-such-compression-tool")
	native, err := f.Compress(context.Background(), staged, dest)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !native {
		t.Error("expected fallback to native strategy")
	}

	entries := readArchive(t, dest)
	if entries["data/a.txt"] != "alpha" {
		t.Errorf("archive content missing after fallback: %v", entries)
	}
}

func TestFinalizeRemovesStagedTree(t *testing.T) {
	staged := buildStaged(t, map[string]string{"data/a.txt": "alpha"})
	dest := filepath.Join(t.TempDir(), "backup.tar.gz")

	f := New(ToolNative, "")
	if _, err := f.Finalize(context.Background(), staged, dest); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Error("staged tree still present after successful archive")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("archive missing: %v", err)
	}
}

func TestCompressCancelled(t *testing.T) {
	staged := buildStaged(t, map[string]string{"data/a.txt": "alpha"})
	dest := filepath.Join(t.TempDir(), "backup.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(ToolNative, "")
	if _, err := f.Compress(ctx, staged, dest); err == nil {
		t.Fatal("expected context error")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("partial archive left behind after cancellation")
	}
}

func TestCompressMissingSource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "backup.tar.gz")

	f := New(ToolNative, "")
	if _, err := f.Compress(context.Background(), filepath.Join(t.TempDir(), "nope"), dest); err == nil {
		t.Fatal("expected error for missing source directory")
	}
}
