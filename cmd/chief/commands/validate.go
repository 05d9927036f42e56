package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joshelvn11/chief/internal/config"
)

func newValidateCmd(flags *globalFlags, log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse and compile the configuration document, printing a per-job summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(flags.configPath)
			if err != nil {
				return withExitCode(1, err)
			}
			out := cmd.OutOrStdout()
			for _, rt := range doc.Jobs {
				status := "enabled"
				if !rt.Spec.Enabled {
					status = "disabled"
				}
				fmt.Fprintf(out, "%s [%s, %s] %s\n", rt.Spec.Name, rt.Compiled.Kind, status, rt.Compiled.Description)
			}
			fmt.Fprintf(out, "%d job(s) validated\n", len(doc.Jobs))
			return nil
		},
	}
}
