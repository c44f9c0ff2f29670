/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/pagegraph/pkg/ascii"
	"github.com/spf13/cobra"
)

// newEntriesCommand creates the `pagegraph entries` command.
func newEntriesCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List bundler entry bindings",
		Long: `List every entry name and the script it binds to, sorted by name.
Pages without a script have no entry and are not listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, g, err := buildGraph(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(g.Entries, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format JSON: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			names := g.Entries.Names()
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name, g.Entries[name]})
			}
			// paths are never truncated
			fmt.Fprint(out, ascii.Table([]string{"ENTRY", "SCRIPT"}, rows, 0))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as a JSON object")
	addBuildFlags(cmd)
	return cmd
}
