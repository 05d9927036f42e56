// Package commands implements chief's cobra command surface: one file per
// verb, registered onto a shared root command carrying the global
// --config flag, following the root-command/subcommand-registration
// pattern used throughout the example pack's CLI tools.
package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// globalFlags holds the flags every subcommand reads off the root command.
type globalFlags struct {
	configPath string
}

// NewRootCmd builds chief's root cobra command with every subcommand
// registered. log may be nil; subcommands fall back to slog.Default().
func NewRootCmd(version string, log *slog.Logger) *cobra.Command {
	flags := &globalFlags{}
	if log == nil {
		log = slog.Default()
	}

	root := &cobra.Command{
		Use:           "chief",
		Short:         "Declarative job scheduler and orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "chief.yaml", "path to the chief configuration document")

	root.AddCommand(
		newValidateCmd(flags, log),
		newPreviewCmd(flags, log),
		newRunCmd(flags, log),
		newDaemonCmd(flags, log),
		newExportCronCmd(flags, log),
	)

	return root
}
