// Package scaffold creates new view units that follow the page naming and
// file layout conventions.
package scaffold

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aymerick/raymond"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/pathfinder"
	"github.com/fulmenhq/pagegraph/pkg/safeio"
	"github.com/fulmenhq/pagegraph/pkg/viewname"
	"github.com/fulmenhq/pagegraph/pkg/viewtree"
)

var (
	// ErrInvalidArgumentCount is returned unless exactly one page name is given.
	ErrInvalidArgumentCount = errors.New("expected exactly one page name")
	// ErrAlreadyExists is returned when the unit directory is already present.
	ErrAlreadyExists = errors.New("page already exists")
)

// DefaultBaseStylesheet is imported ahead of the unit's own stylesheet.
const DefaultBaseStylesheet = "@/style/common.css"

const scriptSource = "{{#if base}}import '{{{base}}}'\n{{/if}}import './{{{style}}}'\n"

const (
	dirMode  os.FileMode = 0o755
	fileMode os.FileMode = 0o644
)

// Options configures a Scaffolder.
type Options struct {
	Root   string
	Layout viewtree.Layout
	// BaseStylesheet is imported first by the generated script. Empty omits
	// the import.
	BaseStylesheet string
	// DryRun reports what would be created without touching the filesystem.
	DryRun bool
}

// Result lists what CreatePage created, or would create in dry-run mode.
type Result struct {
	Name       string `json:"name"`
	Dir        string `json:"dir"`
	Template   string `json:"template"`
	Script     string `json:"script"`
	Stylesheet string `json:"stylesheet"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// Files returns the created file paths in creation order.
func (r *Result) Files() []string {
	return []string{r.Template, r.Script, r.Stylesheet}
}

// Scaffolder creates view units under a fixed root.
type Scaffolder struct {
	opts   Options
	pf     pathfinder.PathFinder
	script *raymond.Template
}

// New returns a Scaffolder for opts. Zero layout fields take the defaults.
func New(opts Options) (*Scaffolder, error) {
	if opts.Root == "" {
		return nil, errors.New("scaffold root cannot be empty")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve scaffold root: %w", err)
	}
	opts.Root = root

	def := viewtree.DefaultLayout()
	if opts.Layout.Basename == "" {
		opts.Layout.Basename = def.Basename
	}
	if opts.Layout.TemplateExt == "" {
		opts.Layout.TemplateExt = def.TemplateExt
	}
	if opts.Layout.ScriptExt == "" {
		opts.Layout.ScriptExt = def.ScriptExt
	}
	if opts.Layout.StyleExt == "" {
		opts.Layout.StyleExt = def.StyleExt
	}

	pf, err := pathfinder.NewConstrainedPathFinder(root)
	if err != nil {
		return nil, err
	}
	tpl, err := raymond.Parse(scriptSource)
	if err != nil {
		return nil, fmt.Errorf("parse script template: %w", err)
	}
	return &Scaffolder{opts: opts, pf: pf, script: tpl}, nil
}

// CreatePage creates <root>/<name> with an empty template, an empty
// stylesheet and a script importing the base stylesheet and the unit's own.
//
// Exactly one name must be given. Invalid input fails before any filesystem
// change. Creating the unit directory is the only step that can race: when
// several callers create the same page concurrently exactly one succeeds and
// the others get ErrAlreadyExists. Existing files are never overwritten and a
// partially created unit is left in place.
func (s *Scaffolder) CreatePage(names ...string) (*Result, error) {
	if len(names) != 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidArgumentCount, len(names))
	}
	name := names[0]
	if err := viewname.Check(name); err != nil {
		return nil, err
	}

	dir, err := s.pf.SafeJoin(s.opts.Root, filepath.FromSlash(name))
	if err != nil {
		return nil, fmt.Errorf("page %q: %w", name, err)
	}

	layout := s.opts.Layout
	res := &Result{
		Name:       name,
		Dir:        dir,
		Template:   filepath.Join(dir, layout.TemplateFile()),
		Script:     filepath.Join(dir, layout.ScriptFile()),
		Stylesheet: filepath.Join(dir, layout.StyleFile()),
		DryRun:     s.opts.DryRun,
	}

	script, err := s.renderScript()
	if err != nil {
		return nil, err
	}

	if s.opts.DryRun {
		if _, err := os.Stat(dir); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		logger.Info("Would create page", logger.String("page", name), logger.String("dir", dir))
		return res, nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), dirMode); err != nil {
		return nil, fmt.Errorf("create parent of %s: %w", name, err)
	}
	if err := os.Mkdir(dir, dirMode); err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
		}
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	for _, f := range []struct {
		path string
		data []byte
	}{
		{res.Template, nil},
		{res.Script, []byte(script)},
		{res.Stylesheet, nil},
	} {
		if err := safeio.CreateExclusive(f.path, f.data, fileMode); err != nil {
			return nil, fmt.Errorf("create %s: %w", f.path, err)
		}
	}

	logger.Info("Created page",
		logger.String("page", name),
		logger.String("dir", dir))
	return res, nil
}

func (s *Scaffolder) renderScript() (string, error) {
	out, err := s.script.Exec(map[string]string{
		"base":  s.opts.BaseStylesheet,
		"style": s.opts.Layout.StyleFile(),
	})
	if err != nil {
		return "", fmt.Errorf("render script boilerplate: %w", err)
	}
	return out, nil
}
