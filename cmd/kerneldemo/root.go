package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/pluginkernel/internal/obslog"
)

// newRootCmd builds the kerneldemo cobra command tree: run, version, and
// dashboard, following the teacher's cmd/streamy/root.go persistent-flag +
// subcommand shape.
func newRootCmd(logger *obslog.Logger) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:           "kerneldemo",
		Short:         "Drive a plugin-orchestration kernel through its canonical lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "path to a plugin manifest YAML file (default: a single built-in greeter)")

	cmd.AddCommand(newRunCmd(logger, &manifestPath))
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newDashboardCmd(logger, &manifestPath))

	return cmd
}
