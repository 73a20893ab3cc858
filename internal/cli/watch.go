package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/agenda/internal/engine"
)

// NewWatchCommand keeps a coordinator running: it follows remote changes and
// sweeps expired special dates on the configured schedule.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and keep the agenda in sync",
		Long: `Run the sync coordinator until interrupted. Expired one-time special
dates are swept on the prune_schedule from the config file.

Example:
  agenda watch --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	cmd.SetContext(ctx)

	cfg, err := loadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	notes := engine.NotifierFunc(func(n engine.Notification) {
		fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", n.Code, n.Message)
	})
	s, err := openSession(cmd, opts, engine.WithPruneSchedule(cfg.PruneSchedule), engine.WithNotifier(notes))
	if err != nil {
		return err
	}
	defer s.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	s.logger.Info("watching", "actor", s.cfg.Actor, "driver", s.cfg.Store.Driver, "prune_schedule", cfg.PruneSchedule)
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %d items, %d special dates. Press Ctrl-C to stop.\n",
		s.coord.Index().Len(), len(s.coord.SpecialDates()))

	select {
	case sig := <-sigChan:
		s.logger.Info("received signal, shutting down", "signal", sig)
	case <-ctx.Done():
	}
	cancel()

	if err := s.Close(); err != nil {
		return WrapExitError(ExitFailure, "failed to close store", err)
	}
	return nil
}
