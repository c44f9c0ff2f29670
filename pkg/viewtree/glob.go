package viewtree

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/fulmenhq/pagegraph/pkg/ignore"
	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/pathfinder"
	"github.com/fulmenhq/pagegraph/pkg/viewname"
)

// defaultSkipDirs are never part of a view tree.
var defaultSkipDirs = []string{"node_modules"}

// skipUnreadable logs a directory that cannot be read and leaves it out.
func skipUnreadable(path string, err error) error {
	logger.Warn("Skipping unreadable path", logger.String("path", path), logger.Err(err))
	return nil
}

// GlobScanner discovers units by walking the filesystem.
type GlobScanner struct {
	Layout  Layout
	Exclude []string
	// IgnoreFiles skips paths matched by .gitignore and .pagegraphignore
	// files found under the scanned root.
	IgnoreFiles bool
}

// NewGlobScanner returns a GlobScanner for the given layout.
func NewGlobScanner(layout Layout, exclude ...string) *GlobScanner {
	return &GlobScanner{Layout: layout, Exclude: exclude}
}

// Scan walks root and groups template, script and stylesheet files by their
// containing directory. It only reads the filesystem.
func (g *GlobScanner) Scan(root string) (UnitSet, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve view root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, absRoot)
		}
		return nil, fmt.Errorf("failed to stat view root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("view root is not a directory: %s", absRoot)
	}

	pf, err := pathfinder.NewConstrainedPathFinder(absRoot)
	if err != nil {
		return nil, err
	}
	codec, err := viewname.NewCodec(absRoot)
	if err != nil {
		return nil, err
	}

	templateFile := g.Layout.TemplateFile()
	scriptFile := g.Layout.ScriptFile()
	styleFile := g.Layout.StyleFile()

	opts := pathfinder.DiscoveryOptions{
		IncludePatterns: []string{"**/" + templateFile, "**/" + scriptFile, "**/" + styleFile},
		ExcludePatterns: g.Exclude,
		SkipDirs:        defaultSkipDirs,
		ErrorHandler:    skipUnreadable,
	}

	var matcher *ignore.Matcher
	if g.IgnoreFiles {
		if matcher, err = ignore.NewMatcher(absRoot); err != nil {
			return nil, err
		}
		opts.SkipDir = matcher.IsIgnoredDir
	}

	files, err := pf.DiscoverFiles(absRoot, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan view root: %w", err)
	}

	units := make(UnitSet)
	styles := make(map[string]string)

	for _, rel := range files {
		if matcher != nil && matcher.IsIgnored(rel) {
			logger.Trace("Skipping ignored file", logger.String("file", rel))
			continue
		}
		abs := filepath.Join(absRoot, filepath.FromSlash(rel))
		dir, err := codec.ToPageName(abs)
		if err != nil {
			logger.Debug("Ignoring file outside any view unit", logger.String("file", rel), logger.Err(err))
			continue
		}

		switch path.Base(rel) {
		case styleFile:
			styles[dir] = abs
			continue
		case templateFile, scriptFile:
		default:
			continue
		}

		unit, ok := units[dir]
		if !ok {
			unit = ViewUnit{Name: dir, Dir: codec.DirFor(dir)}
		}
		if path.Base(rel) == templateFile {
			unit.Template = abs
		} else {
			unit.Script = abs
		}
		units[dir] = unit
	}

	for dir, style := range styles {
		if unit, ok := units[dir]; ok {
			unit.Stylesheet = style
			units[dir] = unit
		}
	}

	logger.Debug("Scanned view tree",
		logger.String("root", absRoot),
		logger.Int("units", len(units)))
	return units, nil
}
