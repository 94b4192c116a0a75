package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jamesainslie/stash/pkg/stash/backup"
	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/jamesainslie/stash/pkg/stash/logging"
	"github.com/jamesainslie/stash/pkg/stash/report"
	"github.com/jamesainslie/stash/pkg/stash/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "stash",
		Short: "Versioned directory backups",
		Long: `Stash copies configured directory trees into timestamped backup
generations at a destination, keeping a bounded number of versions.

Each run produces one generation, either a plain directory tree or a
single .tar.gz archive, and prunes the oldest generations beyond the
retention bound.

Examples:
  stash                                  # Back up configured sources
  stash -s ~/documents -d /mnt/backup   # One-off backup
  stash -z -r 5                          # Compressed, keep 5 versions
  stash list                             # Show generations at the destination
  stash history                          # View past runs
  stash config show                      # Show configuration`,
		Args:         cobra.NoArgs,
		RunE:         runBackup,
		SilenceUsage: true,
	}
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/stash/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	// Run flags (root command only)
	rootCmd.Flags().StringSliceP("source", "s", nil, "source directory (can be specified multiple times)")
	rootCmd.Flags().StringP("destination", "d", "", "destination directory for generations")
	rootCmd.Flags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.Flags().IntP("workers", "w", 0, "override copy worker count")
	rootCmd.Flags().IntP("retain", "r", 0, "override retained generation count")
	rootCmd.Flags().BoolP("compress", "z", false, "archive the generation into a .tar.gz")
	rootCmd.Flags().StringP("output", "o", "", "report format (plain, json, pretty)")

	// Bind flags to viper
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// runBackup performs one backup run.
func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := setupLogging(cfg); err != nil {
		printError("Logging setup failed: %v", err)
		// A broken log file never blocks a backup.
	}
	defer func() { _ = logging.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := backup.NewRunner(cfg)
	if !getQuiet() {
		runner.OnProgress = func(p types.Progress) {
			fmt.Fprintf(os.Stderr, "\rcopying: %d/%d files (%.0f%%)",
				p.FilesCopied, p.TotalFiles, p.Percent())
		}
	}

	result, runErr := runner.Run(ctx)
	if !getQuiet() {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}

	if result != nil {
		if err := renderResult(cfg.Output, result); err != nil {
			printError("Rendering report failed: %v", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, backup.ErrPrecondition) ||
			errors.Is(runErr, config.ErrInvalidConfig) {
			return runErr
		}
		if result != nil && result.Interrupted {
			printError("Backup interrupted")
		}
		return runErr
	}
	return nil
}

// loadConfig loads the configuration and overlays CLI flags on top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging initializes the logging system from the configuration.
func setupLogging(cfg *config.Config) error {
	logCfg := logging.Config{
		Level:      cfg.Logging.Level,
		Path:       cfg.Logging.Path,
		Components: cfg.Logging.Components,
		Rotation:   logging.DefaultRotationConfig(),
	}
	if logCfg.Level == "" {
		logCfg.Level = "info"
	}
	if getVerbose() {
		logCfg.Level = "debug"
		logCfg.ConsoleLevel = "debug"
	}

	if cfg.Logging.Rotation.MaxSize != "" {
		maxSize, err := types.ParseSize(cfg.Logging.Rotation.MaxSize)
		if err != nil {
			return fmt.Errorf("logging.rotation.max_size: %w", err)
		}
		logCfg.Rotation.MaxSize = maxSize
	}
	if cfg.Logging.Rotation.MaxAge > 0 {
		logCfg.Rotation.MaxAge = cfg.Logging.Rotation.MaxAge
	}
	if cfg.Logging.Rotation.MaxBackups > 0 {
		logCfg.Rotation.MaxBackups = cfg.Logging.Rotation.MaxBackups
	}
	logCfg.Rotation.Daily = cfg.Logging.Rotation.Daily

	return logging.Init(logCfg)
}

// renderResult formats and prints the run summary.
func renderResult(format string, result *report.Result) error {
	if format == "" {
		format = config.DefaultOutput
	}
	formatter, err := report.Get(format)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, result); err != nil {
		return err
	}
	fmt.Print(buf.String())
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}

// printError prints an error message to stderr.
func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
