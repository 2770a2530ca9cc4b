// Package cli implements the homebus command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/dshills/homebus/internal/app"
	"github.com/dshills/homebus/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Config   string
	LogLevel string
	JSONLogs bool
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the homebus CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "homebus",
		Short: "homebus - event bus for small automation nodes",
		Long: `homebus wires buttons, relays, sensors and the network link of a small
automation node to a prioritised event bus, with Lua rules deciding what
each component does with the events it hears.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "configuration file (default $HOMEBUS_CONFIG or config.toml)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug, info, warn, error (default $HOMEBUS_LOG_LEVEL or info)")
	cmd.PersistentFlags().BoolVar(&opts.JSONLogs, "json-logs", false, "write logs as JSON")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// settings resolves the flags against the environment.
type settings struct {
	env   config.Env
	path  string
	level slog.Level
}

func resolve(opts *RootOptions, environ map[string]string) (settings, error) {
	e, err := config.LoadEnv(environ)
	if err != nil {
		return settings{}, fmt.Errorf("read environment: %w", err)
	}
	s := settings{env: e, path: e.Config, level: app.ParseLogLevel(e.LogLevel)}
	if opts.Config != "" {
		s.path = opts.Config
	}
	if opts.LogLevel != "" {
		s.level = app.ParseLogLevel(opts.LogLevel)
	}
	return s, nil
}

// load reads the configuration file and applies the environment to it.
func (s settings) load() (*config.Document, error) {
	doc, err := config.Load(s.path)
	if err != nil {
		return nil, err
	}
	s.env.Apply(doc)
	return doc, nil
}
