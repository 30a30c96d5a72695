package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amp-labs/suspense/cli"
	"github.com/amp-labs/suspense/config"
	"github.com/amp-labs/suspense/driver"
	"github.com/amp-labs/suspense/logger"
	"github.com/amp-labs/suspense/statemachine/actions"
	"github.com/amp-labs/suspense/suspense"
)

var errSimulatedFailure = errors.New("simulated failure")

type runFlags struct {
	timeout     time.Duration
	delay       time.Duration
	fail        bool
	interactive bool
	trace       bool
	workers     int
}

func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one suspense machine against a simulated task",
		Long: `Starts a machine whose task waits --delay and then succeeds, or fails with --fail.
With --interactive the outcome is chosen at a prompt instead. Every render is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := settingsFrom(cmd.Context())
			applyRunDefaults(cmd, &flags, settings)

			return runSuspense(cmd, flags, settings.Task)
		},
	}

	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "fallback delay (default from SUSPENSE_TIMEOUT)")
	cmd.Flags().DurationVar(&flags.delay, "delay", 0, "task duration (default from SUSPENSE_TASK_DELAY)")
	cmd.Flags().BoolVar(&flags.fail, "fail", false, "make the task fail")
	cmd.Flags().BoolVar(&flags.interactive, "interactive", false, "choose the task outcome at a prompt")
	cmd.Flags().BoolVar(&flags.trace, "trace", false, "print every action invocation to stderr when done")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "task pool size (default from SUSPENSE_WORKERS)")

	return cmd
}

// applyRunDefaults fills flags the user did not set from the loaded settings.
func applyRunDefaults(cmd *cobra.Command, flags *runFlags, settings config.Settings) {
	if !cmd.Flags().Changed("timeout") {
		flags.timeout = settings.Timeout
	}

	if !cmd.Flags().Changed("delay") {
		flags.delay = settings.TaskDelay
	}

	if !cmd.Flags().Changed("fail") {
		flags.fail = settings.TaskOutcome == config.OutcomeFail
	}

	if !cmd.Flags().Changed("workers") {
		flags.workers = settings.Workers
	}
}

func runSuspense(cmd *cobra.Command, flags runFlags, name string) error {
	ctx := logger.WithSubsystem(cmd.Context(), "run")

	settings := suspense.Settings{
		Task:    simulatedTask(name, flags),
		Timeout: flags.timeout,
	}

	var (
		m      *suspense.Machine
		tracer *actions.ActionTracer
		err    error
	)

	if flags.trace {
		tracer = actions.NewActionTracer()
		m, err = suspense.NewTraced(settings, tracer, logger.Get(ctx))
	} else {
		m, err = suspense.New(settings)
	}

	if err != nil {
		return err
	}

	logger.Get(ctx).Debug("starting machine", "machine_id", m.ID(), "timeout", flags.timeout, "delay", flags.delay)

	d := driver.New(m,
		driver.WithRenderer(driver.WriterRenderer{W: cmd.OutOrStdout()}),
		driver.WithWorkers(flags.workers),
	)

	done := make(chan error, 1)

	go func() {
		done <- d.Run(ctx)
	}()

	if err := d.Start(ctx); err != nil {
		return err
	}

	if err := <-done; err != nil {
		return err
	}

	if tracer != nil {
		if err := tracer.PrintTraces(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "state %s\n", m.State())

	return err
}

func simulatedTask(name string, flags runFlags) driver.TaskFunc {
	return func(ctx context.Context) (any, error) {
		select {
		case <-time.After(flags.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		fail := flags.fail

		if flags.interactive {
			choice, err := cli.SelectOne("Outcome of "+name, cli.SelectOptions{}, config.OutcomeSucceed, config.OutcomeFail)
			if err != nil {
				return nil, err
			}

			fail = choice == config.OutcomeFail
		}

		if fail {
			return nil, fmt.Errorf("%s: %w", name, errSimulatedFailure)
		}

		return name + " finished", nil
	}
}
