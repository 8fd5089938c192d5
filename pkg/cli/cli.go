package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmdmdm-nz/iwmon/internal/iwevent"
	"github.com/dmdmdm-nz/iwmon/pkg/version"
)

// Config holds the application configuration from CLI flags and the
// optional config file.
type Config struct {
	Command         string
	Inline          bool
	Detach          bool
	ShutdownTimeout time.Duration
	OnNew           []string
	OnLost          []string
	HookTimeout     time.Duration
	API             bool
	Host            string
	Port            int
	LogLevel        string
	ConfigFile      string
}

var logLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

// NewRootCommand builds the iwmon command. run receives the final
// configuration once flags and the config file have been merged.
func NewRootCommand(run func(*Config) error) *cobra.Command {
	cfg := &Config{}

	cmd := &cobra.Command{
		Use:           "iwmon",
		Short:         "React to wireless association changes reported by iwevent",
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ConfigFile != "" {
				fc, err := LoadFile(cfg.ConfigFile)
				if err != nil {
					return err
				}
				if err := fc.apply(cfg, cmd.Flags().Changed); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Command, "command", iwevent.DefaultCommand, "Wireless event monitor executable")
	f.BoolVar(&cfg.Inline, "inline", false, "Run callbacks on the reading goroutine instead of concurrently")
	f.BoolVar(&cfg.Detach, "detach", false, "Do not wait for running callbacks on shutdown")
	f.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", iwevent.DefaultShutdownTimeout, "Maximum time to wait for the reader on shutdown")
	f.StringArrayVar(&cfg.OnNew, "on-new", nil, "Command to run on a new association (repeatable)")
	f.StringArrayVar(&cfg.OnLost, "on-lost", nil, "Command to run when the association is lost (repeatable)")
	f.DurationVar(&cfg.HookTimeout, "hook-timeout", 30*time.Second, "Maximum run time of a hook command")
	f.BoolVar(&cfg.API, "api", false, "Serve the HTTP API")
	f.StringVar(&cfg.Host, "host", "127.0.0.1", "Host to bind the API to")
	f.IntVar(&cfg.Port, "port", 60106, "Port to serve the API on")
	f.StringVar(&cfg.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	f.StringVar(&cfg.ConfigFile, "config", "", "Config file (.yaml, .yml, .json or .toml)")

	return cmd
}

func (c *Config) Validate() error {
	if c.Command == "" {
		return fmt.Errorf("command must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	if c.HookTimeout <= 0 {
		return fmt.Errorf("hook timeout must be positive, got %s", c.HookTimeout)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// MonitorConfig converts the CLI settings into a monitor configuration.
func (c *Config) MonitorConfig() iwevent.Config {
	mode := iwevent.DispatchConcurrent
	if c.Inline {
		mode = iwevent.DispatchInline
	}
	return iwevent.Config{
		Command:         c.Command,
		Mode:            mode,
		Detach:          c.Detach,
		ShutdownTimeout: c.ShutdownTimeout,
	}
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Command: %s, Inline: %t, Detach: %t, ShutdownTimeout: %s, Hooks: %d/%d, API: %t, Host: %s, Port: %d, LogLevel: %s",
		c.Command, c.Inline, c.Detach, c.ShutdownTimeout, len(c.OnNew), len(c.OnLost), c.API, c.Host, c.Port, c.LogLevel)
}
