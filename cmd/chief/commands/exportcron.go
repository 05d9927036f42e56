package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshelvn11/chief/internal/config"
	"github.com/joshelvn11/chief/internal/domain"
)

func newExportCronCmd(flags *globalFlags, log *slog.Logger) *cobra.Command {
	var jobName string

	cmd := &cobra.Command{
		Use:   "export-cron",
		Short: "Print a crontab-compatible rendering of every cron-expressible job",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(flags.configPath)
			if err != nil {
				return withExitCode(1, err)
			}
			runtimes, err := selectJobs(doc.Jobs, jobName)
			if err != nil {
				return withExitCode(1, err)
			}

			self, err := os.Executable()
			if err != nil {
				self = "chief"
			}

			out := cmd.OutOrStdout()
			for _, rt := range runtimes {
				if !rt.Spec.Enabled {
					continue
				}
				fmt.Fprintf(out, "CRON_TZ=%s\n", rt.Compiled.TimezoneName)
				writeCronLine(out, rt, doc.Path, self)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "job", "", "only export this job")
	return cmd
}

func writeCronLine(out io.Writer, rt domain.JobRuntime, configPath, self string) {
	command := fmt.Sprintf("cd %s && %s run --config %s --job %s --respect-schedule",
		rt.Spec.WorkingDir, self, configPath, rt.Spec.Name)

	switch rt.Compiled.Kind {
	case domain.KindRuntimeOnly:
		fmt.Fprintf(out, "# runtime-only schedule (%s) — no cron equivalent.\n", rt.Spec.Name)
	case domain.KindHybrid:
		fmt.Fprintf(out, "# NOTE: runtime guard required (ordinal/exclusion/bounds).\n")
		fmt.Fprintf(out, "%s %s\n", rt.Compiled.CronExpr, command)
	default:
		fmt.Fprintf(out, "%s %s\n", rt.Compiled.CronExpr, command)
	}
}
