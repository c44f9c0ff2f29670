/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fulmenhq/pagegraph/pkg/ascii"
	"github.com/fulmenhq/pagegraph/pkg/config"
	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/manifest"
	"github.com/spf13/cobra"
)

const formatTable = "table"

// addBuildFlags registers the flags that override build settings.
func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().String("mode", "", "Build mode (production|development)")
	cmd.Flags().Bool("strict", false, "Fail on view units whose names break the naming convention")
	cmd.Flags().String("inject", "", "Where generated tags are injected (body|head)")
}

// newGraphCommand creates the `pagegraph graph` command.
func newGraphCommand() *cobra.Command {
	var (
		format   string
		output   string
		validate bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate the build manifest",
		Long: `Scan the view tree and print the build manifest: entry map, shared
chunks, one page descriptor per template, output settings and aliases.

Formats: json (default), yaml, toml, table.

Examples:
  pagegraph graph
  pagegraph graph --format yaml --output build/pages.yaml
  pagegraph graph --mode development --validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGraph(cmd, format, output, validate)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json|yaml|toml|table)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the manifest to a file instead of stdout")
	cmd.Flags().BoolVar(&validate, "validate", false, "Validate the manifest against its JSON schema")
	addBuildFlags(cmd)
	return cmd
}

func runGraph(cmd *cobra.Command, format, output string, validate bool) error {
	if strings.EqualFold(format, formatTable) && output != "" {
		return fmt.Errorf("--format table cannot be combined with --output")
	}

	cfg, g, err := buildGraph(cmd)
	if err != nil {
		return err
	}
	for _, r := range g.Rejected {
		logger.Warn("Page left out of the graph", logger.String("page", r.Name), logger.String("reason", r.Reason))
	}

	if strings.EqualFold(format, formatTable) {
		_, err := io.WriteString(cmd.OutOrStdout(), renderTable(g))
		return err
	}

	fmtv, err := manifest.ParseFormat(format)
	if err != nil {
		return err
	}
	doc := documentFor(cfg, g)
	if validate {
		if err := doc.Validate(); err != nil {
			return err
		}
		logger.Debug("Manifest is valid")
	}

	if output == "" {
		return manifest.Encode(cmd.OutOrStdout(), doc, fmtv)
	}
	return writeManifest(cmd, cfg.Resolve(output), doc, fmtv)
}

func documentFor(cfg *config.Config, g *graph.Graph) *manifest.Document {
	return manifest.FromGraph(g, cfg.Build.Output, cfg.Build.Aliases)
}

// writeManifest writes doc unless the file already holds the same bytes.
func writeManifest(cmd *cobra.Command, path string, doc *manifest.Document, format manifest.Format) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		logger.Info("Would write manifest", logger.String("path", path), logger.Int("pages", len(doc.Pages)))
		return nil
	}
	var buf bytes.Buffer
	if err := manifest.Encode(&buf, doc, format); err != nil {
		return err
	}
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, buf.Bytes()) { // #nosec G304 -- user-selected output path
		logger.Debug("Manifest unchanged", logger.String("path", path))
		return nil
	}
	if err := manifest.WriteFile(path, doc, format); err != nil {
		return err
	}
	logger.Info("Wrote manifest",
		logger.String("path", path),
		logger.Int("entries", len(doc.Entries)),
		logger.Int("pages", len(doc.Pages)))
	return nil
}

func renderTable(g *graph.Graph) string {
	rows := make([][]string, 0, len(g.Pages))
	for _, p := range g.Pages {
		entry := "-"
		if path, ok := g.Entries[p.Page]; ok {
			entry = path
		}
		chunks := "(all)"
		if p.Scoped() {
			chunks = strings.Join(p.Chunks, ", ")
		}
		rows = append(rows, []string{p.Filename, entry, chunks})
	}

	var sb strings.Builder
	sb.WriteString(ascii.Table([]string{"PAGE", "ENTRY", "CHUNKS"}, rows, 60))
	fmt.Fprintf(&sb, "%d pages, %d entries, mode %s\n", len(g.Pages), len(g.Entries), g.Mode)
	if len(g.Rejected) > 0 {
		names := make([]string, len(g.Rejected))
		for i, r := range g.Rejected {
			names[i] = r.Name
		}
		fmt.Fprintf(&sb, "skipped: %s\n", strings.Join(names, ", "))
	}
	return sb.String()
}
