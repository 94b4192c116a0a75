// Package generation defines the naming convention for backup generations
// at a destination: timestamped artifacts, either a plain directory tree or
// a single compressed archive. Names embed their creation time so they sort
// lexicographically by age, and that embedded timestamp, not filesystem
// metadata, is the ordering key for retention.
package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Prefix is the leading component of every generation name.
const Prefix = "stash-"

// ArchiveSuffix marks archive generations.
const ArchiveSuffix = ".tar.gz"

// timeLayout is fixed-width so names sort lexicographically by creation
// time, with second resolution.
const timeLayout = "20060102-150405"

// CompleteMarker is written inside a directory generation once it is fully
// populated. Retention does not require it; reporting and future restore
// tooling use it to flag partial generations left by interrupted runs.
const CompleteMarker = ".stash-complete"

// Kind distinguishes the two artifact kinds kept at a destination.
type Kind int

const (
	// KindDirectory is an uncompressed directory-tree generation.
	KindDirectory Kind = iota
	// KindArchive is a single compressed archive generation.
	KindArchive
)

// String returns the kind name used in logs and reports.
func (k Kind) String() string {
	if k == KindArchive {
		return "archive"
	}
	return "directory"
}

// Generation is one backup artifact present at a destination.
type Generation struct {
	// Name is the artifact's base name at the destination.
	Name string

	// Kind is the artifact kind the name encodes.
	Kind Kind

	// Timestamp is the creation time embedded in the name.
	Timestamp time.Time
}

// Path returns the generation's absolute path under dest.
func (g Generation) Path(dest string) string {
	return filepath.Join(dest, g.Name)
}

// Name builds the artifact name for a generation created at ts.
func Name(kind Kind, ts time.Time) string {
	name := Prefix + ts.Format(timeLayout)
	if kind == KindArchive {
		name += ArchiveSuffix
	}
	return name
}

// Parse decodes an artifact name. It reports false for anything at the
// destination that does not follow the generation naming convention, so
// unrelated content is never mistaken for a generation.
func Parse(name string) (Generation, bool) {
	if !strings.HasPrefix(name, Prefix) {
		return Generation{}, false
	}

	rest := strings.TrimPrefix(name, Prefix)
	kind := KindDirectory
	if strings.HasSuffix(rest, ArchiveSuffix) {
		kind = KindArchive
		rest = strings.TrimSuffix(rest, ArchiveSuffix)
	}

	ts, err := time.ParseInLocation(timeLayout, rest, time.Local)
	if err != nil {
		return Generation{}, false
	}

	return Generation{Name: name, Kind: kind, Timestamp: ts}, true
}

// List returns the generations of one kind present at dest, ordered oldest
// first by embedded timestamp. A missing destination yields an empty list.
func List(dest string, kind Kind) ([]Generation, error) {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading destination %s: %w", dest, err)
	}

	var gens []Generation
	for _, e := range entries {
		g, ok := Parse(e.Name())
		if !ok || g.Kind != kind {
			continue
		}
		// A directory generation must be a directory; an archive must
		// not be.
		if (g.Kind == KindDirectory) != e.IsDir() {
			continue
		}
		gens = append(gens, g)
	}

	sort.Slice(gens, func(i, j int) bool {
		return gens[i].Timestamp.Before(gens[j].Timestamp)
	})
	return gens, nil
}

// WriteMarker records that a directory generation is fully populated.
func WriteMarker(genDir string) error {
	marker := filepath.Join(genDir, CompleteMarker)
	return os.WriteFile(marker, []byte(time.Now().Format(time.RFC3339)+"\n"), 0o644)
}

// IsComplete reports whether a generation finished populating. Archive
// generations are complete by construction; directory generations carry
// the completion marker.
func IsComplete(dest string, g Generation) bool {
	if g.Kind == KindArchive {
		return true
	}
	_, err := os.Stat(filepath.Join(g.Path(dest), CompleteMarker))
	return err == nil
}
