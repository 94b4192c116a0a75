package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jamesainslie/stash/pkg/stash/generation"
)

// makeGenerations creates n directory generations at dest, one minute
// apart, oldest first. Returns their names in creation order.
func makeGenerations(t *testing.T, dest string, kind generation.Kind, n int) []string {
	t.Helper()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.Local)

	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		name := generation.Name(kind, base.Add(time.Duration(i)*time.Minute))
		path := filepath.Join(dest, name)
		if kind == generation.KindDirectory {
			if err := os.MkdirAll(filepath.Join(path, "payload"), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			if err := os.WriteFile(filepath.Join(path, "payload", "f.txt"), []byte("x"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		} else {
			if err := os.WriteFile(path, []byte("gz"), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
		names = append(names, name)
	}
	return names
}

func TestPruneKeepsExactlyN(t *testing.T) {
	dest := t.TempDir()
	names := makeGenerations(t, dest, generation.KindDirectory, 3)

	pruned, err := Prune(dest, generation.KindDirectory, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if len(pruned) != 1 || pruned[0] != names[0] {
		t.Errorf("pruned = %v, want [%s]", pruned, names[0])
	}

	remaining, err := generation.List(dest, generation.KindDirectory)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(remaining))
	}
	if remaining[0].Name != names[1] || remaining[1].Name != names[2] {
		t.Errorf("wrong survivors: %v", remaining)
	}
}

func TestPruneDeletesOldestFirstUntilBound(t *testing.T) {
	dest := t.TempDir()
	names := makeGenerations(t, dest, generation.KindDirectory, 5)

	pruned, err := Prune(dest, generation.KindDirectory, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if len(pruned) != 3 {
		t.Fatalf("pruned %d generations, want 3", len(pruned))
	}
	for i, name := range names[:3] {
		if pruned[i] != name {
			t.Errorf("pruned[%d] = %s, want %s (oldest first)", i, pruned[i], name)
		}
	}
}

func TestPruneUnderBoundIsNoop(t *testing.T) {
	dest := t.TempDir()
	makeGenerations(t, dest, generation.KindDirectory, 2)

	pruned, err := Prune(dest, generation.KindDirectory, 3)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected no pruning, got %v", pruned)
	}
}

func TestPruneIgnoresUnrelatedContent(t *testing.T) {
	dest := t.TempDir()
	makeGenerations(t, dest, generation.KindDirectory, 3)

	if err := os.Mkdir(filepath.Join(dest, "photos"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dest, "notes.txt"), []byte("keep me"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Prune(dest, generation.KindDirectory, 1); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dest, "photos")); err != nil {
		t.Error("unrelated directory was removed")
	}
	if _, err := os.Stat(filepath.Join(dest, "notes.txt")); err != nil {
		t.Error("unrelated file was removed")
	}
}

func TestPruneKindsAreIndependent(t *testing.T) {
	dest := t.TempDir()
	makeGenerations(t, dest, generation.KindDirectory, 3)
	archives := makeGenerations(t, dest, generation.KindArchive, 3)

	if _, err := Prune(dest, generation.KindDirectory, 1); err != nil {
		t.Fatalf("Prune: %v", err)
	}

	remaining, err := generation.List(dest, generation.KindArchive)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != len(archives) {
		t.Errorf("archive generations touched by directory prune: %d left", len(remaining))
	}
}

func TestPruneMissingDestination(t *testing.T) {
	pruned, err := Prune(filepath.Join(t.TempDir(), "nope"), generation.KindDirectory, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(pruned) != 0 {
		t.Errorf("expected nothing pruned, got %v", pruned)
	}
}

func TestPruneRejectsNegativeKeep(t *testing.T) {
	if _, err := Prune(t.TempDir(), generation.KindDirectory, -1); err == nil {
		t.Fatal("expected error for negative retention count")
	}
}
