package main

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/jamesainslie/stash/pkg/stash/journal"
	"github.com/jamesainslie/stash/pkg/stash/types"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of backup runs.

The journal stores a record of every run, including which generation
was produced and how many files were copied.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a specific run by its ID.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period.`,
	RunE:  runHistoryClean,
}

var (
	historyLimit int
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

// getJournal returns a journal instance with the configured directory.
func getJournal() (*journal.Journal, error) {
	cfg, err := config.LoadFrom(cfgFile)
	if err == nil && cfg.Journal.Path != "" {
		return journal.New(cfg.Journal.Path)
	}

	// Fall back to the default journal path if config fails to load
	journalDir, dirErr := config.JournalDir()
	if dirErr != nil {
		return nil, fmt.Errorf("failed to get journal directory: %w", dirErr)
	}
	return journal.New(journalDir)
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, args []string) error {
	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	entries, err := j.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo("No history entries found.")
		printInfo("Run 'stash' to back up your configured sources.")
		return nil
	}

	// Print header
	fmt.Printf("\n%-40s  %-22s  %-8s  %-12s\n", "ID", "STATUS", "FILES", "SIZE")
	fmt.Println(strings.Repeat("-", 90))

	for _, entry := range entries {
		fmt.Printf("%-40s  %-22s  %-8d  %-12s\n",
			truncateString(entry.ID, 40),
			entry.Status,
			entry.Summary.FilesCopied,
			types.FormatSize(entry.Summary.BytesCopied),
		)
	}

	fmt.Println(strings.Repeat("-", 90))
	fmt.Printf("\nShowing %d entries. Use --limit to see more.\n", len(entries))
	fmt.Println("Use 'stash history show <id>' for details on a specific run.")

	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	entry, err := j.Get(id)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Println("\nRun Details")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("ID:          %s\n", entry.ID)
	fmt.Printf("Timestamp:   %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("Status:      %s\n", entry.Status)
	if entry.Generation != "" {
		fmt.Printf("Generation:  %s\n", entry.Generation)
		fmt.Printf("Archived:    %t\n", entry.Archived)
	}
	fmt.Printf("Files:       %d of %d copied\n", entry.Summary.FilesCopied, entry.Summary.FilesFound)
	fmt.Printf("Total Size:  %s\n", types.FormatSize(entry.Summary.BytesCopied))
	fmt.Printf("Errors:      %d\n", entry.Summary.Errors)
	fmt.Printf("Duration:    %.1fs\n", entry.DurationSec)

	if len(entry.Sources) > 0 {
		fmt.Println("\nSources:")
		fmt.Println(strings.Repeat("-", 60))
		for _, src := range entry.Sources {
			fmt.Printf("%-8d  %s\n", src.FilesFound, src.Path)
		}
	}

	if len(entry.Pruned) > 0 {
		fmt.Println("\nPruned:")
		for _, name := range entry.Pruned {
			fmt.Printf("  %s\n", name)
		}
	}

	if len(entry.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		// Limit display to 50 warnings
		limit := 50
		if len(entry.Warnings) < limit {
			limit = len(entry.Warnings)
		}
		for i := 0; i < limit; i++ {
			fmt.Printf("  %s\n", entry.Warnings[i])
		}
		if len(entry.Warnings) > limit {
			fmt.Printf("\n... and %d more warnings\n", len(entry.Warnings)-limit)
		}
	}

	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	j, err := getJournal()
	if err != nil {
		return fmt.Errorf("failed to initialize journal: %w", err)
	}

	retentionDays := cfg.Journal.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultJournalRetentionDays
	}

	printInfo("Cleaning history entries older than %d days...", retentionDays)

	if err := j.Cleanup(retentionDays); err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo("History cleanup complete.")
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
