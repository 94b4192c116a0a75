package main

import (
	"fmt"

	"github.com/jamesainslie/stash/pkg/stash/generation"
	"github.com/jamesainslie/stash/pkg/stash/retention"
	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Prune old generations",
	Long: `Delete the oldest generations at the destination until only the
retained count remains. Runs apply the same bound automatically; this
command applies it without producing a new generation.`,
	RunE: runPrune,
}

var (
	pruneKind string
	pruneKeep int
)

func init() {
	pruneCmd.Flags().StringVarP(&pruneKind, "kind", "k", "dir", "generation kind to prune (dir or archive)")
	pruneCmd.Flags().IntVarP(&pruneKeep, "keep", "n", 0, "override retained generation count")
	rootCmd.AddCommand(pruneCmd)
}

// runPrune applies the retention bound to the destination.
func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Root())
	if err != nil {
		return err
	}
	if cfg.Destination == "" {
		return fmt.Errorf("no destination configured")
	}

	var kind generation.Kind
	switch pruneKind {
	case "dir", "directory":
		kind = generation.KindDirectory
	case "archive":
		kind = generation.KindArchive
	default:
		return fmt.Errorf("unknown generation kind %q", pruneKind)
	}

	keep := cfg.RetainVersions
	if pruneKeep > 0 {
		keep = pruneKeep
	}

	pruned, err := retention.Prune(cfg.Destination, kind, keep)
	for _, name := range pruned {
		printInfo("Pruned %s", name)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if len(pruned) == 0 {
		printInfo("Nothing to prune: %d or fewer %s generations present.", keep, kind)
	} else {
		printInfo("Pruned %d generations, keeping the newest %d.", len(pruned), keep)
	}
	return nil
}
