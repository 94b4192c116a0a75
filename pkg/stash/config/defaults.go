// Package config provides configuration management for the stash backup tool.
package config

// Default configuration values for stash.
const (
	// DefaultRetainVersions is the number of backup generations kept at the
	// destination.
	DefaultRetainVersions = 3

	// DefaultWorkers is the default number of copy workers.
	DefaultWorkers = 4

	// DefaultMinFreeSpace is the free space required at the destination
	// before a run starts.
	DefaultMinFreeSpace = "1GB"

	// DefaultConfigDir is the default configuration directory path.
	DefaultConfigDir = "~/.config/stash"

	// DefaultJournalRetentionDays is the default number of days to retain
	// run journal entries.
	DefaultJournalRetentionDays = 90

	// DefaultOutput is the default report format.
	DefaultOutput = "plain"

	// DefaultSMTPPort is the default SMTP submission port.
	DefaultSMTPPort = 587
)
