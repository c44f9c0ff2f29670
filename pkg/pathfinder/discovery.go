package pathfinder

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DiscoveryEngine provides file discovery with pattern matching
type DiscoveryEngine struct {
	validator *SafetyValidator
}

// NewDiscoveryEngine creates a new file discovery engine
func NewDiscoveryEngine(validator *SafetyValidator) *DiscoveryEngine {
	return &DiscoveryEngine{
		validator: validator,
	}
}

// DiscoverFiles returns the sorted, slash-separated relative paths of regular
// files under basePath that pass the configured filters.
func (d *DiscoveryEngine) DiscoverFiles(basePath string, opts DiscoveryOptions) ([]string, error) {
	var files []string
	err := d.walk(basePath, opts, func(rel string, isDir bool) {
		if !isDir && d.matchesFilters(rel, opts) {
			files = append(files, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// DiscoverDirs returns the sorted relative paths of every directory under
// basePath, including "." for the base itself. Include and exclude patterns
// are not applied to directories; pruning rules are.
func (d *DiscoveryEngine) DiscoverDirs(basePath string, opts DiscoveryOptions) ([]string, error) {
	var dirs []string
	err := d.walk(basePath, opts, func(rel string, isDir bool) {
		if isDir {
			dirs = append(dirs, rel)
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (d *DiscoveryEngine) walk(basePath string, opts DiscoveryOptions, visit func(rel string, isDir bool)) error {
	if err := d.validator.ValidatePath(basePath); err != nil {
		return fmt.Errorf("base path validation failed: %w", err)
	}

	// the base itself may be a symlink; entries below it are not followed
	walkRoot := basePath
	if resolved, err := filepath.EvalSymlinks(basePath); err == nil {
		walkRoot = resolved
	}

	err := filepath.WalkDir(walkRoot, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if opts.ErrorHandler != nil {
				return opts.ErrorHandler(path, err)
			}
			return err
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && d.pruned(rel, entry, opts) {
			if entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		visit(rel, entry.IsDir())
		return nil
	})
	if err != nil {
		return fmt.Errorf("discovery walk failed: %w", err)
	}
	return nil
}

// pruned reports whether an entry below the base is left out of the walk.
func (d *DiscoveryEngine) pruned(rel string, entry fs.DirEntry, opts DiscoveryOptions) bool {
	if strings.HasPrefix(entry.Name(), ".") {
		return true
	}
	if !entry.IsDir() {
		return false
	}
	if slices.Contains(opts.SkipDirs, entry.Name()) {
		return true
	}
	return opts.SkipDir != nil && opts.SkipDir(rel)
}

// matchesFilters checks if a file matches all the configured filters
func (d *DiscoveryEngine) matchesFilters(relPath string, opts DiscoveryOptions) bool {
	if len(opts.IncludePatterns) > 0 && !d.MatchesAnyPattern(relPath, opts.IncludePatterns) {
		return false
	}
	if len(opts.ExcludePatterns) > 0 && d.MatchesAnyPattern(relPath, opts.ExcludePatterns) {
		return false
	}
	return true
}

// MatchesAnyPattern checks if path matches any of the given patterns.
// Patterns without a slash also match against the base name, unless they
// start with "./", which pins them to the discovery root.
func (d *DiscoveryEngine) MatchesAnyPattern(path string, patterns []string) bool {
	for _, pattern := range patterns {
		isRootOnly := strings.HasPrefix(pattern, "./") || strings.HasPrefix(pattern, ".\\")

		normalizedPattern := strings.ReplaceAll(pattern, "\\", "/")
		normalizedPattern = filepath.ToSlash(filepath.Clean(normalizedPattern))

		if matched, err := doublestar.Match(normalizedPattern, path); err == nil && matched {
			return true
		}

		if !isRootOnly && !strings.Contains(normalizedPattern, "/") {
			if matched, err := doublestar.Match(normalizedPattern, filepath.Base(path)); err == nil && matched {
				return true
			}
		}
	}
	return false
}
