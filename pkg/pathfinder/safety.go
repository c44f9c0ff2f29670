package pathfinder

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var errTraversal = errors.New("path contains traversal sequences (..)")

// SafetyValidator rejects traversal sequences and, once constrained, any
// path that resolves outside the constraint root.
type SafetyValidator struct {
	constraint PathConstraint
}

// NewSafetyValidator returns an unconstrained validator.
func NewSafetyValidator() *SafetyValidator {
	return &SafetyValidator{}
}

// SetConstraint sets the path constraint for validation
func (s *SafetyValidator) SetConstraint(constraint PathConstraint) {
	s.constraint = constraint
}

// ValidatePath rejects empty paths, ".." segments and paths outside the constraint.
func (s *SafetyValidator) ValidatePath(path string) error {
	switch {
	case path == "":
		return errors.New("path cannot be empty")
	case hasTraversal(path):
		return errTraversal
	case s.constraint != nil && !s.constraint.Contains(path):
		return fmt.Errorf("path %s is outside %s", path, s.constraint.Root())
	}
	return nil
}

// SafeJoin joins a relative component onto base and validates the result.
func (s *SafetyValidator) SafeJoin(base, path string) (string, error) {
	if base == "" {
		return "", errors.New("base path cannot be empty")
	}
	if err := s.ValidatePath(base); err != nil {
		return "", fmt.Errorf("base path validation failed: %w", err)
	}
	// checked before joining; Join would clean ".." away
	if hasTraversal(path) {
		return "", fmt.Errorf("path component validation failed: %w", errTraversal)
	}
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path component must be relative: %s", path)
	}

	joined := filepath.Join(base, path)
	if err := s.ValidatePath(joined); err != nil {
		return "", fmt.Errorf("joined path validation failed: %w", err)
	}
	return joined, nil
}

func hasTraversal(path string) bool {
	return slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..")
}

// RootConstraint keeps paths inside a single directory tree, such as a view root.
type RootConstraint struct {
	rootPath string
}

// NewRootConstraint creates a constraint anchored at rootPath.
func NewRootConstraint(rootPath string) (*RootConstraint, error) {
	if rootPath == "" {
		return nil, errors.New("constraint root cannot be empty")
	}
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	return &RootConstraint{rootPath: abs}, nil
}

// Contains reports whether path, made absolute, is the root or below it.
func (c *RootConstraint) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(c.rootPath, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Root returns the constraint root path
func (c *RootConstraint) Root() string {
	return c.rootPath
}
