package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/homebus/internal/app"
	"github.com/dshills/homebus/internal/config"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	NoWatch     bool
	ReloadDelay int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the node until interrupted",
		Long: `Run loads the configuration, builds every component and runs the event
loop until SIGINT or SIGTERM. Changes to the configuration file are picked
up and applied without a restart unless --no-watch is given.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, cmd, rootOpts, opts, nil)
		},
	}

	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "do not reload when the configuration file changes")
	cmd.Flags().IntVar(&opts.ReloadDelay, "reload-delay", int(config.DefaultReloadDelay.Milliseconds()), "milliseconds to wait for a burst of file changes to settle")

	return cmd
}

func runNode(ctx context.Context, cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions, environ map[string]string) error {
	s, err := resolve(rootOpts, environ)
	if err != nil {
		return err
	}
	doc, err := s.load()
	if err != nil {
		return err
	}

	level := s.level
	if doc.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger := app.NewLogger(app.LoggerConfig{
		Level:  level,
		Output: cmd.ErrOrStderr(),
		JSON:   rootOpts.JSONLogs,
		Name:   doc.Name,
	})

	rt := app.New(app.Options{
		Logger:   logger,
		Console:  cmd.OutOrStdout(),
		SlowPull: s.env.SlowPull,
	})
	if err := rt.Configure(doc); err != nil {
		return err
	}

	if !opts.NoWatch {
		w, err := config.Watch(s.path, func(next *config.Document, err error) {
			if err != nil {
				logger.Error("configuration not reloaded", "path", s.path, "error", err)
				return
			}
			s.env.Apply(next)
			rt.Loop().Schedule(func() {
				if err := rt.Reload(next); err != nil && !errors.Is(err, app.ErrShutdown) {
					logger.Error("reload failed", "error", err)
				}
			})
		},
			config.WithReloadDelay(millis(opts.ReloadDelay)),
			config.WithWatchLogger(app.WithComponent(logger, "config")),
		)
		if err != nil {
			logger.Warn("configuration watch disabled", "path", s.path, "error", err)
		} else {
			defer w.Close()
		}
	}

	runErr := rt.Run(ctx)
	if err := rt.Shutdown(); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	return nil
}
