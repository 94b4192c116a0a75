package generation

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func TestNameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)

	tests := []struct {
		kind Kind
		want string
	}{
		{KindDirectory, "stash-20260314-092653"},
		{KindArchive, "stash-20260314-092653.tar.gz"},
	}

	for _, tt := range tests {
		name := Name(tt.kind, ts)
		if name != tt.want {
			t.Errorf("Name(%v) = %q, want %q", tt.kind, name, tt.want)
		}

		g, ok := Parse(name)
		if !ok {
			t.Fatalf("Parse(%q) failed", name)
		}
		if g.Kind != tt.kind {
			t.Errorf("Parse(%q).Kind = %v, want %v", name, g.Kind, tt.kind)
		}
		if !g.Timestamp.Equal(ts) {
			t.Errorf("Parse(%q).Timestamp = %v, want %v", name, g.Timestamp, ts)
		}
	}
}

func TestParseRejectsUnrelatedNames(t *testing.T) {
	for _, name := range []string{
		"notes.txt",
		"stash-",
		"stash-hello",
		"stash-2026",
		"backup-20260314-092653",
		"stash-20260314-092653.zip",
	} {
		if _, ok := Parse(name); ok {
			t.Errorf("Parse(%q) accepted a non-generation name", name)
		}
	}
}

func TestNamesSortByCreationTime(t *testing.T) {
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	names := []string{
		Name(KindDirectory, base.Add(2*time.Hour)),
		Name(KindDirectory, base),
		Name(KindDirectory, base.Add(time.Minute)),
	}

	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	if sorted[0] != names[1] || sorted[1] != names[2] || sorted[2] != names[0] {
		t.Errorf("lexicographic order does not follow creation time: %v", sorted)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	dest := t.TempDir()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)

	// Two directory generations, one archive, and unrelated content.
	for i, d := range []time.Duration{time.Hour, 0} {
		if err := os.Mkdir(filepath.Join(dest, Name(KindDirectory, base.Add(d))), 0o755); err != nil {
			t.Fatalf("mkdir %d: %v", i, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dest, Name(KindArchive, base)), []byte("gz"), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dest, "unrelated"), 0o755); err != nil {
		t.Fatalf("mkdir unrelated: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write unrelated: %v", err)
	}

	dirs, err := List(dest, KindDirectory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directory generations, got %d", len(dirs))
	}
	if !dirs[0].Timestamp.Before(dirs[1].Timestamp) {
		t.Error("List must order oldest first")
	}

	archives, err := List(dest, KindArchive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("expected 1 archive generation, got %d", len(archives))
	}
}

func TestListMissingDestination(t *testing.T) {
	gens, err := List(filepath.Join(t.TempDir(), "nope"), KindDirectory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gens) != 0 {
		t.Errorf("expected no generations, got %d", len(gens))
	}
}

func TestCompletionMarker(t *testing.T) {
	dest := t.TempDir()
	ts := time.Date(2026, 5, 1, 12, 0, 0, 0, time.Local)
	g := Generation{Name: Name(KindDirectory, ts), Kind: KindDirectory, Timestamp: ts}

	if err := os.Mkdir(g.Path(dest), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if IsComplete(dest, g) {
		t.Error("generation without marker reported complete")
	}
	if err := WriteMarker(g.Path(dest)); err != nil {
		t.Fatalf("WriteMarker: %v", err)
	}
	if !IsComplete(dest, g) {
		t.Error("generation with marker reported incomplete")
	}

	archive := Generation{Name: Name(KindArchive, ts), Kind: KindArchive, Timestamp: ts}
	if !IsComplete(dest, archive) {
		t.Error("archive generations are complete by construction")
	}
}
