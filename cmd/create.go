/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fulmenhq/pagegraph/pkg/ascii"
	"github.com/fulmenhq/pagegraph/pkg/scaffold"
	"github.com/spf13/cobra"
)

// newCreateCommand creates the `pagegraph create` command.
func newCreateCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "create <segment>/<segment>",
		Short: "Scaffold a new page",
		Long: `Create a new view unit under the view root.

The page name must be exactly two segments of letters, digits or underscores
separated by a slash. The unit directory receives an empty template, an empty
stylesheet and a script that imports the base stylesheet and its own.

Examples:
  pagegraph create blog/index
  pagegraph create shop/cart --dry-run`,
		// The scaffolder checks the argument count.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd, args, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the created paths as JSON")
	return cmd
}

func runCreate(cmd *cobra.Command, args []string, jsonOutput bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := scaffold.New(scaffold.Options{
		Root:           cfg.ViewRoot(),
		Layout:         cfg.Layout(),
		BaseStylesheet: cfg.Scaffold.BaseStylesheet,
		DryRun:         dryRun,
	})
	if err != nil {
		return err
	}

	res, err := s.CreatePage(args...)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	lines := []string{"Page created successfully"}
	if res.DryRun {
		lines[0] = "Would create page " + res.Name
	}
	lines = append(lines, res.Files()...)
	fmt.Fprint(out, ascii.Box(lines))
	return nil
}
