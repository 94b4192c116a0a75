package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/stash/pkg/stash/generation"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List generations at the destination",
	Long: `List the backup generations present at the configured destination,
oldest first. Directory generations left incomplete by an interrupted
run are flagged.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

// runList prints the generations of both kinds present at the destination.
func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Root())
	if err != nil {
		return err
	}
	if cfg.Destination == "" {
		return fmt.Errorf("no destination configured")
	}

	var all []generation.Generation
	for _, kind := range []generation.Kind{generation.KindDirectory, generation.KindArchive} {
		gens, err := generation.List(cfg.Destination, kind)
		if err != nil {
			return fmt.Errorf("failed to list generations: %w", err)
		}
		all = append(all, gens...)
	}

	if len(all) == 0 {
		printInfo("No generations found at %s.", cfg.Destination)
		printInfo("Run 'stash' to create one.")
		return nil
	}

	fmt.Printf("\n%-30s  %-10s  %-20s  %s\n", "NAME", "KIND", "CREATED", "STATE")
	fmt.Println(strings.Repeat("-", 75))

	for _, g := range all {
		state := "complete"
		if !generation.IsComplete(cfg.Destination, g) {
			state = "incomplete"
		}
		fmt.Printf("%-30s  %-10s  %-20s  %s\n",
			g.Name, g.Kind, g.Timestamp.Format("2006-01-02 15:04:05"), state)
	}

	fmt.Println(strings.Repeat("-", 75))
	fmt.Printf("\n%d generations at %s\n", len(all), cfg.Destination)

	return nil
}
