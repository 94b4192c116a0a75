package main

import (
	"fmt"

	"github.com/jamesainslie/stash/pkg/stash/config"
	"github.com/spf13/cobra"
)

// applyFlags overlays run flags onto the loaded configuration. Only flags
// the user actually set override the file and environment values; exclude
// patterns are additive.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("source") {
		sources, err := flags.GetStringSlice("source")
		if err != nil {
			return err
		}
		expanded := make([]string, len(sources))
		for i, src := range sources {
			if expanded[i], err = config.ExpandPath(src); err != nil {
				return err
			}
		}
		cfg.Sources = expanded
	}

	if flags.Changed("destination") {
		dest, err := flags.GetString("destination")
		if err != nil {
			return err
		}
		if cfg.Destination, err = config.ExpandPath(dest); err != nil {
			return err
		}
	}

	if flags.Changed("exclude") {
		patterns, err := flags.GetStringSlice("exclude")
		if err != nil {
			return err
		}
		cfg.Exclude = append(cfg.Exclude, patterns...)
	}

	if flags.Changed("workers") {
		workers, err := flags.GetInt("workers")
		if err != nil {
			return err
		}
		cfg.Workers = workers
	}

	if flags.Changed("retain") {
		retain, err := flags.GetInt("retain")
		if err != nil {
			return err
		}
		cfg.RetainVersions = retain
	}

	if flags.Changed("compress") {
		compress, err := flags.GetBool("compress")
		if err != nil {
			return err
		}
		cfg.Compress.Enabled = compress
	}

	if flags.Changed("output") {
		output, err := flags.GetString("output")
		if err != nil {
			return err
		}
		switch output {
		case "plain", "json", "pretty":
			cfg.Output = output
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
	}

	return nil
}
