package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	kernel "github.com/alexisbeaulieu97/pluginkernel"
	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
	"github.com/alexisbeaulieu97/pluginkernel/lifecycle"
)

// newRunCmd drives the bootstrap -> setup/receive CLI arguments -> init ->
// run -> terminate sequence original_source's launcher.py performs around
// asyncio signal handlers, translated to signal.NotifyContext
// (SPEC_FULL.md §6.3).
func newRunCmd(logger *obslog.Logger, manifestPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the configured plugins through bootstrap, init, run, and terminate",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := loadManifest(*manifestPath)
			if err != nil {
				return err
			}

			plugins, err := buildPlugins(m)
			if err != nil {
				return err
			}

			mgr, err := kernel.NewManager(plugins, kernel.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("build manager: %w", err)
			}

			pluginFlags := pflag.NewFlagSet("kerneldemo-plugins", pflag.ContinueOnError)
			if err := lifecycle.Bootstrap.InvokeWith(mgr); err != nil {
				return fmt.Errorf("bootstrap: %w", err)
			}
			if err := lifecycle.SetupCLIArguments.InvokeWith(mgr, pluginFlags); err != nil {
				return fmt.Errorf("setup_cli_arguments: %w", err)
			}
			if err := pluginFlags.Parse(args); err != nil {
				return fmt.Errorf("parse plugin flags: %w", err)
			}
			if err := lifecycle.ReceiveCLIArguments.InvokeWith(mgr, pluginFlags); err != nil {
				return fmt.Errorf("receive_cli_arguments: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = kernel.WithManager(ctx, mgr)

			return runLifecycle(ctx, cmd, mgr, logger)
		},
	}
}

// runLifecycle schedules init then run, cancellable by the signal-bearing
// ctx, and always schedules terminate afterward — on a fresh, short-lived
// context, since ctx itself may already be cancelled by the time terminate
// needs to run (mirrors the source's finally-block terminate call, which
// runs whether run completed, failed, or was cancelled).
func runLifecycle(ctx context.Context, cmd *cobra.Command, mgr *kernel.Manager, logger *obslog.Logger) error {
	initTasks, err := lifecycle.Init.InvokeWith(ctx, mgr)
	if err != nil {
		return fmt.Errorf("schedule init: %w", err)
	}
	if err := kernel.WaitAll(initTasks); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	print := func(line string) { fmt.Fprintln(cmd.OutOrStdout(), line) }

	runTasks, err := lifecycle.Run.InvokeWith(ctx, mgr, print)
	if err != nil {
		return fmt.Errorf("schedule run: %w", err)
	}
	runErr := kernel.WaitAll(runTasks)

	termCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	termCtx = kernel.WithManager(termCtx, mgr)

	termTasks, termScheduleErr := lifecycle.Terminate.InvokeWith(termCtx, mgr)
	if termScheduleErr != nil {
		logger.Error("schedule terminate failed", "error", termScheduleErr)
	} else if err := kernel.WaitAll(termTasks); err != nil {
		logger.Error("terminate failed", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("run: %w", runErr)
	}
	return nil
}
