package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshelvn11/chief/internal/config"
	"github.com/joshelvn11/chief/internal/domain"
	"github.com/joshelvn11/chief/internal/schedule"
	"github.com/joshelvn11/chief/internal/shared"
)

func newPreviewCmd(flags *globalFlags, log *slog.Logger) *cobra.Command {
	var jobName string
	var count int

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the next upcoming fire times for one or all jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(flags.configPath)
			if err != nil {
				return withExitCode(1, err)
			}

			runtimes, err := selectJobs(doc.Jobs, jobName)
			if err != nil {
				return withExitCode(1, err)
			}

			out := cmd.OutOrStdout()
			now := time.Now().UTC()
			for _, rt := range runtimes {
				for _, fireUTC := range schedule.NextRunTimes(rt.Compiled, now, count) {
					loc := rt.Compiled.Timezone
					if loc == nil {
						loc = time.UTC
					}
					local := fireUTC.In(loc)
					fmt.Fprintf(out, "%s — %s (%s)\n", rt.Spec.Name, local.Format(time.RFC3339), rt.Compiled.TimezoneName)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&jobName, "job", "", "only preview this job")
	cmd.Flags().IntVar(&count, "count", 5, "number of upcoming fires to print per job")
	return cmd
}

// selectJobs returns every runtime when name is empty, or the single
// matching runtime when a job name was requested.
func selectJobs(jobs []domain.JobRuntime, name string) ([]domain.JobRuntime, error) {
	if name == "" {
		return jobs, nil
	}
	for _, rt := range jobs {
		if rt.Spec.Name == name {
			return []domain.JobRuntime{rt}, nil
		}
	}
	return nil, shared.Wrapf(shared.ErrConfigInvalid, "no job named %q", name)
}
