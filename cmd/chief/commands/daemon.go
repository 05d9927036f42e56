package commands

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshelvn11/chief/internal/config"
	"github.com/joshelvn11/chief/internal/daemon"
	"github.com/joshelvn11/chief/internal/telemetry"
)

const interruptExitCode = 130

func newDaemonCmd(flags *globalFlags, log *slog.Logger) *cobra.Command {
	var pollSeconds int

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run as a long-lived process, firing jobs at their scheduled instants",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(flags.configPath)
			if err != nil {
				return withExitCode(1, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			monitor := doc.EffectiveMonitor()
			emitter := telemetry.NewEmitter(monitor, log)
			emitter.Start(ctx)

			d := daemon.New(doc.Jobs, monitor, emitter, log, time.Duration(pollSeconds)*time.Second)
			log.Info("daemon starting", "jobs", len(doc.Jobs), "poll_seconds", pollSeconds)

			err = d.Run(ctx)
			if errors.Is(err, context.Canceled) {
				return withExitCode(interruptExitCode, err)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&pollSeconds, "poll-seconds", int(daemon.DefaultPollInterval/time.Second), "poll interval in seconds")
	return cmd
}
