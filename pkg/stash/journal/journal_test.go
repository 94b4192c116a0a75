package journal

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := j.EnsureDir(); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	return j
}

func TestNewRequiresDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty journal directory")
	}
}

func TestRecordPersistsEntry(t *testing.T) {
	j := newTestJournal(t)

	stored, err := j.Record(Entry{
		Status:     StatusCompleted,
		Generation: "stash-20260615-103000",
		Sources:    []SourceRecord{{Path: "/data", FilesFound: 10}},
		Summary:    Summary{FilesFound: 10, FilesCopied: 10, BytesCopied: 4096},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if !strings.HasPrefix(stored.ID, "run-") {
		t.Errorf("ID = %q, want run- prefix", stored.ID)
	}
	if stored.Timestamp.IsZero() {
		t.Error("Timestamp not assigned")
	}

	// The file must exist and decode back to the same entry.
	data, err := os.ReadFile(filepath.Join(j.dir, stored.ID+".json"))
	if err != nil {
		t.Fatalf("entry file not written: %v", err)
	}
	var decoded Entry
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("entry file not valid JSON: %v", err)
	}
	if decoded.Generation != stored.Generation || decoded.Status != StatusCompleted {
		t.Errorf("decoded entry mismatch: %+v", decoded)
	}
}

func TestRecordIDsAreUnique(t *testing.T) {
	j := newTestJournal(t)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		stored, err := j.Record(Entry{Status: StatusCompleted})
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if seen[stored.ID] {
			t.Fatalf("duplicate ID: %s", stored.ID)
		}
		seen[stored.ID] = true
	}
}

func TestListNewestFirst(t *testing.T) {
	j := newTestJournal(t)

	for _, gen := range []string{"first", "second", "third"} {
		if _, err := j.Record(Entry{Status: StatusCompleted, Generation: gen}); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := j.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(entries))
	}
	if entries[0].Generation != "third" || entries[2].Generation != "first" {
		t.Errorf("entries not newest first: %v, %v, %v",
			entries[0].Generation, entries[1].Generation, entries[2].Generation)
	}

	limited, err := j.List(2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d entries", len(limited))
	}
}

func TestListEmptyOrMissingDir(t *testing.T) {
	j := newTestJournal(t)

	entries, err := j.List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("List() = %v, want empty slice", entries)
	}

	missing, err := New(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	entries, err = missing.List(0)
	if err != nil {
		t.Fatalf("List() on missing dir error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("List() on missing dir = %v", entries)
	}
}

func TestGet(t *testing.T) {
	j := newTestJournal(t)

	stored, err := j.Record(Entry{Status: StatusFailed, Warnings: []string{"low disk"}})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := j.Get(stored.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusFailed || len(got.Warnings) != 1 {
		t.Errorf("Get() = %+v", got)
	}

	if _, err := j.Get("run-does-not-exist"); err == nil {
		t.Error("Get() on missing ID should fail")
	}
	if _, err := j.Get(""); err == nil {
		t.Error("Get() with empty ID should fail")
	}
}

func TestCleanup(t *testing.T) {
	j := newTestJournal(t)

	// An old entry, written directly so its embedded timestamp is stale.
	old := Entry{
		ID:        "run-2020-01-01T00-00-00-deadbeef",
		Timestamp: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:    StatusCompleted,
	}
	data, err := json.Marshal(old)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(j.dir, old.ID+".json"), data, 0o644); err != nil {
		t.Fatalf("write old entry: %v", err)
	}

	recent, err := j.Record(Entry{Status: StatusCompleted})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	if err := j.Cleanup(30); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	if _, err := j.Get(old.ID); err == nil {
		t.Error("old entry survived cleanup")
	}
	if _, err := j.Get(recent.ID); err != nil {
		t.Errorf("recent entry removed by cleanup: %v", err)
	}
}
