// Package retention bounds the number of backup generations kept at a
// destination. The policy is keep-exactly-N: pruning deletes the oldest
// generations of a kind, by embedded timestamp, until at most the
// configured count remain. Directory and archive generations are
// independent retention sets.
package retention

import (
	"fmt"
	"os"

	"github.com/jamesainslie/stash/pkg/stash/generation"
)

// Prune deletes the oldest generations of the given kind at dest until at
// most keep remain, and returns the names it removed, oldest first. Only
// entries matching the generation naming convention are considered;
// unrelated content at the destination is never touched. A generation
// already removed concurrently counts as pruned.
func Prune(dest string, kind generation.Kind, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("retention count must not be negative, got %d", keep)
	}

	gens, err := generation.List(dest, kind)
	if err != nil {
		return nil, err
	}
	if len(gens) <= keep {
		return nil, nil
	}

	var pruned []string
	for _, g := range gens[:len(gens)-keep] {
		path := g.Path(dest)
		if err := os.RemoveAll(path); err != nil {
			// Leave the generation for the next run rather than
			// failing the current one.
			return pruned, fmt.Errorf("removing %s: %w", path, err)
		}
		pruned = append(pruned, g.Name)
	}
	return pruned, nil
}

// Count returns how many generations of a kind are present at dest.
func Count(dest string, kind generation.Kind) (int, error) {
	gens, err := generation.List(dest, kind)
	if err != nil {
		return 0, err
	}
	return len(gens), nil
}
