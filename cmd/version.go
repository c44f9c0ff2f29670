/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/pagegraph/pkg/buildinfo"
	"github.com/spf13/cobra"
)

// newVersionCommand creates the `pagegraph version` command.
func newVersionCommand() *cobra.Command {
	var (
		extended   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := buildinfo.Current()
			out := cmd.OutOrStdout()

			if jsonOutput {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format JSON: %v", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "pagegraph %s\n", info.Version)
			if extended {
				fmt.Fprintf(out, "Source: %s\n", info.Source)
				if info.GitCommit != "" {
					fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
				}
				if info.BuildDate != "" {
					fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
				}
			}
			fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", info.Platform, info.Arch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&extended, "extended", false, "Show detailed build information")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version information in JSON format")
	return cmd
}
