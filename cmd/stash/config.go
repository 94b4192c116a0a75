package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage stash configuration settings.

Configuration is loaded from:
  1. $XDG_CONFIG_HOME/stash/config.yaml (if set)
  2. ~/.config/stash/config.yaml

Environment variables can override config file settings using the STASH_ prefix:
  STASH_DESTINATION=/mnt/backup
  STASH_RETAIN_VERSIONS=5
  STASH_MIN_FREE_SPACE=2GB`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings from all sources.`,
	RunE:  runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long: `Open the configuration file in your default editor.

The editor is determined by:
  1. $VISUAL environment variable
  2. $EDITOR environment variable
  3. Falls back to 'vi'

If the config file doesn't exist, a default one will be created first.`,
	RunE: runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long:  `Create a default configuration file if one doesn't exist.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path to the configuration file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

// runConfigShow displays the current configuration.
func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err == nil {
		configPath := filepath.Join(configDir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fmt.Printf("Config file: %s\n\n", configPath)
		} else {
			fmt.Println("Config file: (using defaults, no file found)")
			fmt.Println()
		}
	}

	fmt.Println("Current Configuration:")
	fmt.Println("----------------------")
	fmt.Printf("sources:              %v\n", cfg.Sources)
	fmt.Printf("destination:          %s\n", cfg.Destination)
	fmt.Printf("exclude:              %v\n", cfg.Exclude)
	fmt.Printf("retain_versions:      %d\n", cfg.RetainVersions)
	fmt.Printf("workers:              %d\n", cfg.Workers)
	fmt.Printf("min_free_space:       %s\n", cfg.MinFreeSpace)
	fmt.Printf("compress.enabled:     %t\n", cfg.Compress.Enabled)
	fmt.Printf("compress.tool:        %s\n", cfg.Compress.Tool)
	fmt.Printf("staging.enabled:      %t\n", cfg.Staging.Enabled)
	fmt.Printf("notify.enabled:       %t\n", cfg.Notify.Enabled)
	fmt.Printf("journal.enabled:      %t\n", cfg.Journal.Enabled)
	fmt.Printf("journal.path:         %s\n", cfg.Journal.Path)
	fmt.Printf("journal.retention:    %d days\n", cfg.Journal.RetentionDays)
	fmt.Printf("output:               %s\n", cfg.Output)

	// Show any environment overrides
	fmt.Println("\nEnvironment Overrides:")
	fmt.Println("----------------------")
	anyOverrides := false
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "STASH_") {
			fmt.Println(env)
			anyOverrides = true
		}
	}
	if !anyOverrides {
		fmt.Println("(none)")
	}

	return nil
}

// runConfigEdit opens the config file in an editor.
func runConfigEdit(cmd *cobra.Command, args []string) error {
	// Ensure config file exists
	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Determine editor
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "vi"
	}

	printVerbose("Opening %s with %s", configPath, editor)

	editorCmd := exec.Command(editor, configPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("editor command failed: %w", err)
	}

	return nil
}

// runConfigInit creates a default config file.
func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		printInfo("Config file already exists: %s", configPath)
		printInfo("Use 'stash config edit' to modify it.")
		return nil
	}

	if err := config.WriteDefault(); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	printInfo("Created default config file: %s", configPath)
	return nil
}

// runConfigPath shows the config file path.
func runConfigPath(cmd *cobra.Command, args []string) error {
	configDir, err := config.ConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}
	configPath := filepath.Join(configDir, "config.yaml")

	fmt.Println(configPath)

	if _, err := os.Stat(configPath); err == nil {
		printVerbose("File exists")
	} else if os.IsNotExist(err) {
		printVerbose("File does not exist (will use defaults)")
	}

	return nil
}
