package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshelvn11/chief/internal/config"
	"github.com/joshelvn11/chief/internal/execution"
	"github.com/joshelvn11/chief/internal/schedule"
	"github.com/joshelvn11/chief/internal/telemetry"
)

func newRunCmd(flags *globalFlags, log *slog.Logger) *cobra.Command {
	var jobName string
	var respectSchedule bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a job (or every job) one-shot, outside of the daemon loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(flags.configPath)
			if err != nil {
				return withExitCode(1, err)
			}
			runtimes, err := selectJobs(doc.Jobs, jobName)
			if err != nil {
				return withExitCode(1, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			monitor := doc.EffectiveMonitor()
			emitter := telemetry.NewEmitter(monitor, log)
			emitter.Start(ctx)
			defer emitter.Shutdown(context.Background())

			anyFailed := false
			now := time.Now().UTC()
			for _, rt := range runtimes {
				if !rt.Spec.Enabled {
					continue
				}
				if respectSchedule && !schedule.IsDueNow(rt.Compiled, now) {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: not due, skipping\n", rt.Spec.Name)
					continue
				}
				// Per-job enablement already layers the global default in
				// config; a job that explicitly opted out stays out even
				// when the emitter runs for other jobs.
				result := execution.RunJob(ctx, rt, nil, emitter, rt.Spec.Monitor.Enabled, monitor)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: success=%v\n", rt.Spec.Name, result.Success)
				if !result.Success {
					anyFailed = true
				}
			}

			if anyFailed {
				return withExitCode(1, fmt.Errorf("one or more jobs failed"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "job", "", "only run this job")
	cmd.Flags().BoolVar(&respectSchedule, "respect-schedule", false, "skip jobs that are not currently due")
	return cmd
}
