// Package pathfinder provides path safety checks and glob-based file discovery
// used to enumerate view trees.
package pathfinder

// PathFinder bundles the safety and discovery operations behind one value.
type PathFinder interface {
	SafeJoin(base, path string) (string, error)
	ValidatePath(path string) error
	DiscoverFiles(basePath string, opts DiscoveryOptions) ([]string, error)
	DiscoverDirs(basePath string, opts DiscoveryOptions) ([]string, error)
}

type pathfinderImpl struct {
	validator *SafetyValidator
	discovery *DiscoveryEngine
}

// NewConstrainedPathFinder creates a PathFinder whose paths must stay under root.
func NewConstrainedPathFinder(root string) (PathFinder, error) {
	constraint, err := NewRootConstraint(root)
	if err != nil {
		return nil, err
	}
	validator := NewSafetyValidator()
	validator.SetConstraint(constraint)
	return &pathfinderImpl{
		validator: validator,
		discovery: NewDiscoveryEngine(validator),
	}, nil
}

func (p *pathfinderImpl) SafeJoin(base, path string) (string, error) {
	return p.validator.SafeJoin(base, path)
}

func (p *pathfinderImpl) ValidatePath(path string) error {
	return p.validator.ValidatePath(path)
}

func (p *pathfinderImpl) DiscoverFiles(basePath string, opts DiscoveryOptions) ([]string, error) {
	return p.discovery.DiscoverFiles(basePath, opts)
}

func (p *pathfinderImpl) DiscoverDirs(basePath string, opts DiscoveryOptions) ([]string, error) {
	return p.discovery.DiscoverDirs(basePath, opts)
}

// PathConstraint defines boundaries for path operations
type PathConstraint interface {
	Contains(path string) bool
	Root() string
}

// DiscoveryOptions configures discovery. Hidden entries (a segment starting
// with a dot) and symlinks are never visited.
type DiscoveryOptions struct {
	// IncludePatterns are doublestar globs matched against the slash-separated
	// path relative to the base. A file must match at least one when set.
	IncludePatterns []string
	ExcludePatterns []string
	// SkipDirs lists directory base names that are never descended into.
	SkipDirs []string
	// SkipDir prunes a directory by its slash-separated path relative to the base.
	SkipDir      func(rel string) bool
	ErrorHandler ErrorHandlerFunc
}

// ErrorHandlerFunc handles errors during directory walking. Returning nil
// skips the offending entry.
type ErrorHandlerFunc func(path string, err error) error
