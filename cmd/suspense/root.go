package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/amp-labs/suspense/config"
	"github.com/amp-labs/suspense/logger"
	"github.com/amp-labs/suspense/shutdown"
	"github.com/amp-labs/suspense/statemachine"
	"github.com/amp-labs/suspense/suspense"
	"github.com/amp-labs/suspense/telemetry"
)

type settingsKey struct{}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "suspense",
		Short: "Suspense is a state machine for asynchronous UI regions",
		Long: `Suspense launches an operation, shows a fallback when it outlasts a grace period
and renders the outcome once it settles.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}

			logger.ConfigureLoggingWithOptions(logger.Options{
				Subsystem:   "suspense",
				JSON:        settings.LogJSON,
				MinLevel:    settings.LogLevel,
				LegacyLevel: slog.LevelInfo,
				Output:      cmd.ErrOrStderr(),
			})

			if err := telemetry.Initialize(ctx, telemetry.ConfigFromSettings(settings)); err != nil {
				return err
			}

			shutdown.BeforeShutdown(func() {
				flushTelemetry(context.WithoutCancel(ctx))
			})

			statemachine.SetConfigLoader(suspense.Loader{})

			cmd.SetContext(context.WithValue(ctx, settingsKey{}, settings))

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			flushTelemetry(context.WithoutCancel(cmd.Context()))
		},
	}

	root.AddCommand(newRunCmd(), newDiagramCmd(), newValidateCmd(), newVersionCmd())

	return root
}

func settingsFrom(ctx context.Context) config.Settings {
	settings, _ := ctx.Value(settingsKey{}).(config.Settings)

	return settings
}

func flushTelemetry(ctx context.Context) {
	if err := telemetry.Shutdown(ctx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}
}
