// Package viewname maps view-unit directories to canonical page names and
// validates page names supplied by users.
//
// A page name is the unit directory relative to the view root, written with
// forward slashes and exactly two word segments, e.g. "blog/index".
package viewname

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// ErrInvalidPageName is returned when a name does not match segment/segment.
	ErrInvalidPageName = errors.New("invalid page name")
	// ErrMalformedPath is returned when a path does not belong to a unit under the view root.
	ErrMalformedPath = errors.New("malformed view path")
)

// pageNamePattern accepts two non-empty segments of ASCII word characters.
var pageNamePattern = regexp.MustCompile(`^\w+/\w+$`)

// Validate reports whether candidate is a well-formed page name.
func Validate(candidate string) bool {
	return pageNamePattern.MatchString(candidate)
}

// Check is Validate with an error that names the offending input.
func Check(candidate string) error {
	if Validate(candidate) {
		return nil
	}
	return fmt.Errorf("%w %q: expected <segment>/<segment> of letters, digits or underscores", ErrInvalidPageName, candidate)
}

// Codec converts between filesystem paths under a view root and page names.
type Codec struct {
	root string
}

// NewCodec returns a Codec anchored at root. Relative roots are resolved
// against the working directory.
func NewCodec(root string) (*Codec, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("view root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve view root: %w", err)
	}
	return &Codec{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute view root.
func (c *Codec) Root() string {
	return c.root
}

// ToPageName strips the view root prefix and the trailing file name from path.
// The result uses forward slashes; it is not checked against the page name
// grammar so that callers can report non-conforming units.
func (c *Codec) ToPageName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrMalformedPath, path, err)
	}
	rel, err := filepath.Rel(c.root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not under %s", ErrMalformedPath, path, c.root)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is not under %s", ErrMalformedPath, path, c.root)
	}

	dir := filepath.Dir(rel)
	if dir == "." {
		return "", fmt.Errorf("%w: %s has no containing view unit", ErrMalformedPath, path)
	}
	return filepath.ToSlash(dir), nil
}

// DirFor returns the unit directory for name.
func (c *Codec) DirFor(name string) string {
	return filepath.Join(c.root, filepath.FromSlash(name))
}

// PathFor returns the path of file inside the unit directory for name.
func (c *Codec) PathFor(name, file string) string {
	return filepath.Join(c.DirFor(name), file)
}
