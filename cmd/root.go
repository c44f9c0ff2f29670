/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/fulmenhq/pagegraph/pkg/buildinfo"
	"github.com/fulmenhq/pagegraph/pkg/config"
	"github.com/fulmenhq/pagegraph/pkg/exitcode"
	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/manifest"
	"github.com/fulmenhq/pagegraph/pkg/scaffold"
	"github.com/fulmenhq/pagegraph/pkg/viewname"
	"github.com/fulmenhq/pagegraph/pkg/viewtree"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// Tests build isolated command trees from it without shared flag state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagegraph",
		Short: "Discover view pages and generate the bundler build graph",
		Long: `Pagegraph discovers every view unit under the view root, derives the
bundler entry map, per-page chunk lists and output page descriptors, and
scaffolds new pages that follow the <segment>/<segment> naming convention.

Examples:
   pagegraph create blog/index      # Scaffold a new page
   pagegraph graph                  # Print the build manifest as JSON
   pagegraph graph --format table   # Summarize pages and their chunks
   pagegraph entries                # List entry bindings
   pagegraph watch --output pages.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().Bool("dry-run", false, "Report changes without writing files")
	cmd.PersistentFlags().String("config", "", "Config file (default: pagegraph.yaml in the working directory or $HOME)")
	cmd.PersistentFlags().String("project-root", "", "Project root (default: enclosing git worktree or working directory)")
	cmd.PersistentFlags().String("views-root", "", "View root relative to the project root (default: src/html/views)")

	cmd.Version = buildinfo.Current().Version
	cmd.SetVersionTemplate("pagegraph {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newCreateCommand())
	cmd.AddCommand(newGraphCommand())
	cmd.AddCommand(newEntriesCommand())
	cmd.AddCommand(newWatchCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

func init() {
	registerSubcommands(rootCmd)
}

// Execute runs the root command and exits with a code describing the failure.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("Command execution failed", logger.Err(err))
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the process exit code.
func exitCodeFor(err error) int {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, scaffold.ErrInvalidArgumentCount):
		return exitcode.UsageError
	case errors.Is(err, viewname.ErrInvalidPageName),
		errors.Is(err, viewname.ErrMalformedPath),
		errors.Is(err, manifest.ErrInvalidManifest):
		return exitcode.ValidationError
	case errors.Is(err, scaffold.ErrAlreadyExists),
		errors.Is(err, graph.ErrDuplicateEntryName):
		return exitcode.ConflictError
	case errors.Is(err, config.ErrInvalidConfig):
		return exitcode.ConfigError
	case errors.Is(err, viewtree.ErrRootNotFound), errors.As(err, &pathErr):
		return exitcode.FileSystemError
	default:
		return exitcode.GeneralError
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	cfg := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "pagegraph",
		DryRun:    dryRun,
	}

	if err := logger.Initialize(cfg); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}

// loadConfig reads configuration, letting explicitly passed flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	return config.Load(config.LoadOptions{
		ConfigFile: file,
		Flags:      cmd.Flags(),
	})
}

// buildGraph loads configuration and builds the page graph from it.
func buildGraph(cmd *cobra.Command) (*config.Config, *graph.Graph, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.GraphOptions()
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(cfg.Scanner(), opts)
	if err != nil {
		return nil, nil, err
	}
	return cfg, g, nil
}
