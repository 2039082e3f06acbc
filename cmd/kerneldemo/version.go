package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at release time via -ldflags; "dev" is the value a plain
// `go build` produces, matching the teacher's cmd/streamy/version.go
// convention.
var version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kerneldemo version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
