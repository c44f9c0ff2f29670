// Package ignore filters view tree paths with gitignore semantics using go-git
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the view-root-level ignore file read on top of .gitignore.
const FileName = ".pagegraphignore"

// defaultPatterns are always ignored, before any file is read.
var defaultPatterns = []string{".git/**", "node_modules/**"}

// Matcher answers whether a path below its root is ignored.
type Matcher struct {
	root    string
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher anchored at root with layered patterns:
// 1. built-in defaults
// 2. every .gitignore under root
// 3. root/.pagegraphignore
// Later layers win, so a ! pattern in .pagegraphignore re-includes a path.
func NewMatcher(root string) (*Matcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ignore root: %w", err)
	}

	var patterns []gitignore.Pattern
	for _, p := range defaultPatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	gitPatterns, err := gitignore.ReadPatterns(osfs.New(absRoot), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read .gitignore files: %w", err)
	}
	patterns = append(patterns, gitPatterns...)

	lines, err := readIgnoreFile(filepath.Join(absRoot, FileName))
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return &Matcher{root: absRoot, matcher: gitignore.NewMatcher(patterns)}, nil
}

// readIgnoreFile returns the pattern lines of path. A missing file yields none.
func readIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- fixed file name under the resolved root
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	defer func() { _ = f.Close() }()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return patterns, nil
}

// Root returns the absolute directory patterns are anchored at.
func (m *Matcher) Root() string {
	return m.root
}

// IsIgnored reports whether the file at path is ignored. path may be absolute
// or slash-separated relative to the root. Paths outside the root are never
// ignored.
func (m *Matcher) IsIgnored(path string) bool {
	return m.match(path, false)
}

// IsIgnoredDir reports whether the directory at path is ignored.
func (m *Matcher) IsIgnoredDir(path string) bool {
	return m.match(path, true)
}

func (m *Matcher) match(path string, isDir bool) bool {
	parts := m.components(path)
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, isDir)
}

func (m *Matcher) components(path string) []string {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(m.root, path)
		if err != nil {
			return nil
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil
	}
	return splitPath(rel)
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return []string{}
	}

	path = strings.TrimPrefix(path, "/")
	parts := strings.Split(path, "/")

	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}

	return result
}
