package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/stash/pkg/stash/types"
)

// ErrInvalidConfig marks configuration errors. They are the only errors
// that abort a run before any work happens.
var ErrInvalidConfig = errors.New("invalid configuration")

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// CompressConfig configures archive creation.
type CompressConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Tool     string `mapstructure:"tool"`      // "native" or "external"
	ToolPath string `mapstructure:"tool_path"` // external tool (default "tar")
}

// StagingConfig configures the intermediate copy location used before
// compression.
type StagingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"` // empty means a directory under the destination
	Keep    bool   `mapstructure:"keep"`
}

// NotifyConfig configures email notification of run outcomes.
type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	To       string `mapstructure:"to"`
	From     string `mapstructure:"from"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	TLS      bool   `mapstructure:"tls"`
}

// JournalConfig configures the run journal.
type JournalConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Sources        []string       `mapstructure:"sources"`
	Destination    string         `mapstructure:"destination"`
	Exclude        []string       `mapstructure:"exclude"`
	RetainVersions int            `mapstructure:"retain_versions"`
	Workers        int            `mapstructure:"workers"`
	MinFreeSpace   string         `mapstructure:"min_free_space"`
	Compress       CompressConfig `mapstructure:"compress"`
	Staging        StagingConfig  `mapstructure:"staging"`
	Notify         NotifyConfig   `mapstructure:"notify"`
	Journal        JournalConfig  `mapstructure:"journal"`
	Logging        LoggingConfig  `mapstructure:"logging"`
	Output         string         `mapstructure:"output"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/stash/config.yaml
//   - $HOME/.config/stash/config.yaml
//
// Environment variables are prefixed with STASH_ (e.g., STASH_DESTINATION).
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom loads configuration like Load but reads the given file instead
// of searching the standard locations. An empty path behaves like Load.
func LoadFrom(file string) (*Config, error) {
	v := viper.New()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if file != "" {
		v.SetConfigFile(file)
	} else {
		// Set config name and type
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config paths
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "stash"))
		}
		v.AddConfigPath(filepath.Join(homeDir, ".config", "stash"))
	}

	// Set environment variable prefix and enable auto env binding
	v.SetEnvPrefix("STASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand ~ in path-valued keys
	for i, src := range cfg.Sources {
		if cfg.Sources[i], err = ExpandPath(src); err != nil {
			return nil, err
		}
	}
	if cfg.Destination, err = ExpandPath(cfg.Destination); err != nil {
		return nil, err
	}
	if cfg.Staging.Dir, err = ExpandPath(cfg.Staging.Dir); err != nil {
		return nil, err
	}
	if cfg.Journal.Path, err = ExpandPath(cfg.Journal.Path); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every configuration key's default value.
func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("sources", []string{})
	v.SetDefault("destination", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("retain_versions", DefaultRetainVersions)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("min_free_space", DefaultMinFreeSpace)

	v.SetDefault("compress.enabled", false)
	v.SetDefault("compress.tool", "native")
	v.SetDefault("compress.tool_path", "")

	v.SetDefault("staging.enabled", false)
	v.SetDefault("staging.dir", "")
	v.SetDefault("staging.keep", false)

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.smtp_port", DefaultSMTPPort)
	v.SetDefault("notify.tls", true)

	v.SetDefault("journal.enabled", true)
	v.SetDefault("journal.path", filepath.Join(homeDir, ".config", "stash", ".journal"))
	v.SetDefault("journal.retention_days", DefaultJournalRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"walker":  "info",
		"copier":  "info",
		"archive": "info",
		"notify":  "warn",
	})

	v.SetDefault("output", DefaultOutput)
}

// Validate checks the configuration for values no run could proceed with.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources configured", ErrInvalidConfig)
	}
	if c.Destination == "" {
		return fmt.Errorf("%w: no destination configured", ErrInvalidConfig)
	}
	if c.RetainVersions < 1 {
		return fmt.Errorf("%w: retain_versions must be at least 1, got %d",
			ErrInvalidConfig, c.RetainVersions)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d",
			ErrInvalidConfig, c.Workers)
	}
	if c.MinFreeSpace != "" {
		if _, err := types.ParseSize(c.MinFreeSpace); err != nil {
			return fmt.Errorf("%w: min_free_space: %v", ErrInvalidConfig, err)
		}
	}
	switch c.Output {
	case "plain", "json", "pretty":
	default:
		return fmt.Errorf("%w: unknown output format %q", ErrInvalidConfig, c.Output)
	}
	if c.Compress.Enabled {
		switch c.Compress.Tool {
		case "", "native", "external":
		default:
			return fmt.Errorf("%w: unknown compression tool %q",
				ErrInvalidConfig, c.Compress.Tool)
		}
	}
	if c.Notify.Enabled {
		if c.Notify.To == "" || c.Notify.From == "" || c.Notify.SMTPHost == "" {
			return fmt.Errorf("%w: notify requires to, from and smtp_host",
				ErrInvalidConfig)
		}
	}
	return nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	// Check XDG_CONFIG_HOME first
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "stash"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "stash"), nil
}

// JournalDir returns the journal directory path.
func JournalDir() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, ".journal"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists.
// Returns nil if a config file already exists.
func WriteDefault() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}

	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(configDir, "config.yaml")

	// Check if config file already exists
	if _, err := os.Stat(configPath); err == nil {
		// Config file exists, do nothing
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	journalDir, err := JournalDir()
	if err != nil {
		return err
	}

	defaultConfig := fmt.Sprintf(`# Stash Backup Configuration

# Directories to back up
sources: []
#  - ~/documents
#  - ~/projects

# Where backup generations are written
destination: ""

# Patterns excluded from every backup, merged with the built-in set
# (VCS metadata, OS cruft, caches). '*' matches across path separators.
exclude: []
#  - "*/node_modules"
#  - "*.tmp"

# How many backup generations to keep at the destination
retain_versions: %d

# Concurrent copy workers
workers: %d

# Minimum free space required at the destination before a run starts
min_free_space: %s

# Archive the backup into a single .tar.gz
compress:
  enabled: false
  # "native" compresses in-process; "external" shells out to tool_path
  tool: native
  tool_path: ""

# Copy to an intermediate directory before compressing
staging:
  enabled: false
  # Empty means a directory under the destination
  dir: ""
  # Keep the staged tree after a successful archive
  keep: false

# Email notification of run outcomes
notify:
  enabled: false
  to: ""
  from: ""
  smtp_host: ""
  smtp_port: %d
  username: ""
  password: ""
  tls: true

# Run journal for stash history
journal:
  enabled: true
  path: %s
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/stash/stash.log)
  path: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    walker: info
    copier: info
    archive: info
    notify: warn

# Report format: plain, json, pretty
output: %s
`, DefaultRetainVersions, DefaultWorkers, DefaultMinFreeSpace,
		DefaultSMTPPort, journalDir, DefaultJournalRetentionDays, DefaultOutput)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// StateDir returns $XDG_STATE_HOME/stash/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "stash")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "stash.log")
}

// EnsureStateDir creates the state directory if it doesn't exist.
func EnsureStateDir() error {
	if err := os.MkdirAll(StateDir(), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	return nil
}
