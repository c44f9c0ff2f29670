/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/pagegraph/internal/rebuild"
	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/manifest"
	"github.com/spf13/cobra"
)

// newWatchCommand creates the `pagegraph watch` command.
func newWatchCommand() *cobra.Command {
	var (
		format   string
		output   string
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild the manifest whenever the view tree changes",
		Long: `Watch the view root and rebuild the whole graph after every change.
The manifest is written to --output, or printed to stdout when no output file
is given. A failed rebuild is logged and the previous manifest is kept.

Examples:
  pagegraph watch --output build/pages.json
  pagegraph watch --mode development --format yaml -o build/pages.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd, format, output, debounce)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Manifest format (json|yaml|toml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Manifest file to keep up to date")
	cmd.Flags().DurationVar(&debounce, "debounce", rebuild.DefaultDebounce, "Quiet period before rebuilding")
	addBuildFlags(cmd)
	return cmd
}

func runWatch(cmd *cobra.Command, format, output string, debounce time.Duration) error {
	fmtv, err := manifest.ParseFormat(format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.GraphOptions()
	if err != nil {
		return err
	}
	scanner := cfg.Scanner()

	rebuildOnce := func(_ context.Context, changed []string) error {
		g, err := graph.Build(scanner, opts)
		if err != nil {
			return err
		}
		doc := documentFor(cfg, g)
		if output == "" {
			return manifest.Encode(cmd.OutOrStdout(), doc, fmtv)
		}
		logger.Debug("Rebuilding manifest", logger.Strings("changed", changed))
		return writeManifest(cmd, cfg.Resolve(output), doc, fmtv)
	}

	watchCfg := rebuild.Config{
		Root:         opts.Root,
		Debounce:     debounce,
		Ignore:       cfg.Views.Exclude,
		IgnoreFiles:  cfg.Views.IgnoreFiles,
		InitialBuild: true,
		OnChange:     rebuildOnce,
	}
	if cfg.Views.Manifest != "" {
		watchCfg.Files = []string{cfg.Resolve(cfg.Views.Manifest)}
	}

	w, err := rebuild.New(watchCfg)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.Root, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Watching view tree", logger.String("root", opts.Root), logger.String("mode", string(opts.Mode)))
	return w.Run(ctx)
}
