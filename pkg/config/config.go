package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/pagegraph/pkg/graph"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/manifest"
	"github.com/fulmenhq/pagegraph/pkg/viewtree"
	"github.com/go-git/go-git/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when loaded settings cannot drive a build.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for pagegraph
type Config struct {
	ProjectRoot string         `mapstructure:"project_root"`
	Views       ViewsConfig    `mapstructure:"views"`
	Build       BuildConfig    `mapstructure:"build"`
	Scaffold    ScaffoldConfig `mapstructure:"scaffold"`

	// ConfigFile is the file settings were read from, if any.
	ConfigFile string `mapstructure:"-"`
}

// ViewsConfig locates the view tree and names the files of a view unit.
type ViewsConfig struct {
	Root        string   `mapstructure:"root"`
	Basename    string   `mapstructure:"basename"`
	TemplateExt string   `mapstructure:"template_ext"`
	ScriptExt   string   `mapstructure:"script_ext"`
	StyleExt    string   `mapstructure:"style_ext"`
	Exclude     []string `mapstructure:"exclude"`
	IgnoreFiles bool     `mapstructure:"ignore_files"`
	// Manifest, when set, lists units explicitly instead of globbing the tree.
	Manifest string `mapstructure:"manifest"`
}

// BuildConfig holds the inputs of graph generation.
type BuildConfig struct {
	Mode         string             `mapstructure:"mode"`
	Strict       bool               `mapstructure:"strict"`
	Inject       string             `mapstructure:"inject"`
	SharedChunks []string           `mapstructure:"shared_chunks"`
	FixedEntries []graph.FixedEntry `mapstructure:"fixed_entries"`
	Output       manifest.Output    `mapstructure:"output"`
	Aliases      map[string]string  `mapstructure:"aliases"`
}

// ScaffoldConfig holds page scaffolding options.
type ScaffoldConfig struct {
	BaseStylesheet string `mapstructure:"base_stylesheet"`
}

// LoadOptions controls where Load looks for settings.
type LoadOptions struct {
	// ConfigFile is an explicit config file; when empty pagegraph.{yaml,json,toml}
	// is searched in WorkDir and $HOME and its absence is not an error.
	ConfigFile string
	// WorkDir defaults to the process working directory.
	WorkDir string
	// Flags, when set, overrides settings with explicitly passed flags.
	Flags *pflag.FlagSet
}

// flagKeys maps CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"project-root": "project_root",
	"views-root":   "views.root",
	"mode":         "build.mode",
	"strict":       "build.strict",
	"inject":       "build.inject",
}

func setDefaults(v *viper.Viper) {
	layout := viewtree.DefaultLayout()
	out := manifest.DefaultOutput()

	v.SetDefault("project_root", "")
	v.SetDefault("views.root", "src/html/views")
	v.SetDefault("views.basename", layout.Basename)
	v.SetDefault("views.template_ext", layout.TemplateExt)
	v.SetDefault("views.script_ext", layout.ScriptExt)
	v.SetDefault("views.style_ext", layout.StyleExt)
	v.SetDefault("views.exclude", []string{})
	v.SetDefault("views.ignore_files", true)
	v.SetDefault("views.manifest", "")

	v.SetDefault("build.mode", string(graph.ModeProduction))
	v.SetDefault("build.strict", false)
	v.SetDefault("build.inject", graph.DefaultInject)
	v.SetDefault("build.shared_chunks", []string{"common", "vendor", "basic"})
	v.SetDefault("build.fixed_entries", []map[string]any{
		{"name": "basic", "path": "./src/js/default.js"},
	})
	v.SetDefault("build.output.path", out.Path)
	v.SetDefault("build.output.filename", out.Filename)
	v.SetDefault("build.output.public_path", out.PublicPath)
	v.SetDefault("build.aliases", map[string]string{"@": "./src"})

	v.SetDefault("scaffold.base_stylesheet", "@/style/common.css")
}

// Load reads configuration from defaults, an optional config file, .env
// files, PAGEGRAPH_* environment variables and explicitly set flags, in
// increasing order of precedence.
func Load(opts LoadOptions) (*Config, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		workDir = wd
	}

	if err := loadDotEnv(workDir); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("pagegraph")
		v.AddConfigPath(workDir)
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("PAGEGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if opts.Flags != nil {
		for name, key := range flagKeys {
			if f := opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	switch {
	case cfg.ProjectRoot == "":
		cfg.ProjectRoot = DetectProjectRoot(workDir)
	case !filepath.IsAbs(cfg.ProjectRoot):
		cfg.ProjectRoot = filepath.Join(workDir, cfg.ProjectRoot)
	}
	cfg.ProjectRoot = filepath.Clean(cfg.ProjectRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Loaded configuration",
		logger.String("project_root", cfg.ProjectRoot),
		logger.String("config_file", cfg.ConfigFile),
		logger.String("mode", cfg.Build.Mode))

	return &cfg, nil
}

// loadDotEnv loads .env then .env.local from dir. Variables already present
// in the environment are never overwritten, so the first file wins.
func loadDotEnv(dir string) error {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		logger.Debug("Loaded environment file", logger.String("path", path))
	}
	return nil
}

// DetectProjectRoot returns the worktree root of the git repository enclosing
// dir, or dir itself when there is none.
func DetectProjectRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return dir
	}
	wt, err := repo.Worktree()
	if err != nil {
		return dir
	}
	return wt.Filesystem.Root()
}

// Validate checks that the settings can drive a build.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Views.Root) == "" {
		problems = append(problems, "views.root is empty")
	}
	for _, kv := range [][2]string{
		{"views.basename", c.Views.Basename},
		{"views.template_ext", c.Views.TemplateExt},
		{"views.script_ext", c.Views.ScriptExt},
		{"views.style_ext", c.Views.StyleExt},
	} {
		if strings.TrimSpace(kv[1]) == "" || strings.ContainsAny(kv[1], `/\.`) {
			problems = append(problems, fmt.Sprintf("%s must be a plain name, got %q", kv[0], kv[1]))
		}
	}
	if _, err := graph.ParseMode(c.Build.Mode); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// Resolve makes p absolute against the project root.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.ProjectRoot, filepath.FromSlash(p))
}

// ViewRoot returns the absolute view root.
func (c *Config) ViewRoot() string {
	return c.Resolve(c.Views.Root)
}

// Layout returns the view unit file naming.
func (c *Config) Layout() viewtree.Layout {
	return viewtree.Layout{
		Basename:    c.Views.Basename,
		TemplateExt: c.Views.TemplateExt,
		ScriptExt:   c.Views.ScriptExt,
		StyleExt:    c.Views.StyleExt,
	}
}

// Scanner returns the manifest scanner when views.manifest is set and the
// glob scanner otherwise.
func (c *Config) Scanner() viewtree.Scanner {
	if c.Views.Manifest != "" {
		return &viewtree.ManifestScanner{Path: c.Resolve(c.Views.Manifest)}
	}
	scanner := viewtree.NewGlobScanner(c.Layout(), c.Views.Exclude...)
	scanner.IgnoreFiles = c.Views.IgnoreFiles
	return scanner
}

// GraphOptions returns the graph build inputs.
func (c *Config) GraphOptions() (graph.Options, error) {
	mode, err := graph.ParseMode(c.Build.Mode)
	if err != nil {
		return graph.Options{}, err
	}
	return graph.Options{
		Root:         c.ViewRoot(),
		Mode:         mode,
		Strict:       c.Build.Strict,
		Inject:       c.Build.Inject,
		SharedChunks: c.Build.SharedChunks,
		FixedEntries: c.Build.FixedEntries,
	}, nil
}
