package viewtree

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/pagegraph/pkg/pathfinder"
	"gopkg.in/yaml.v3"
)

// unitManifest is the on-disk shape read by ManifestScanner:
//
//	units:
//	  - name: blog/index
//	    template: blog/index/index.art
//	    script: blog/index/index.js
//	    stylesheet: blog/index/index.css
type unitManifest struct {
	Units []manifestUnit `yaml:"units"`
}

type manifestUnit struct {
	Name       string `yaml:"name"`
	Template   string `yaml:"template"`
	Script     string `yaml:"script"`
	Stylesheet string `yaml:"stylesheet"`
}

// ManifestScanner reads the unit list from a YAML file instead of globbing.
// Path may point anywhere, relative paths resolve against the working
// directory. Paths listed in the file are relative to the view root and must
// stay inside it.
type ManifestScanner struct {
	Path string
}

// NewManifestScanner returns a scanner backed by the manifest at path.
func NewManifestScanner(path string) *ManifestScanner {
	return &ManifestScanner{Path: path}
}

// Scan loads the manifest and resolves every listed file against root.
// Listed files are not required to exist; the manifest is the source of truth.
func (m *ManifestScanner) Scan(root string) (UnitSet, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve view root: %w", err)
	}

	if m.Path == "" {
		return nil, fmt.Errorf("unit manifest path cannot be empty")
	}
	// #nosec G304 -- operator-configured path; only listed unit files are confined to the root
	data, err := os.ReadFile(filepath.Clean(m.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to read unit manifest: %w", err)
	}

	var doc unitManifest
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse unit manifest %s: %w", m.Path, err)
	}

	pf, err := pathfinder.NewConstrainedPathFinder(absRoot)
	if err != nil {
		return nil, err
	}

	units := make(UnitSet, len(doc.Units))
	for i, entry := range doc.Units {
		name := strings.Trim(strings.TrimSpace(entry.Name), "/")
		if name == "" {
			return nil, fmt.Errorf("unit manifest entry %d has no name", i)
		}
		if _, dup := units[name]; dup {
			return nil, fmt.Errorf("unit manifest lists %q more than once", name)
		}
		if entry.Template == "" && entry.Script == "" {
			continue
		}

		dir, err := pf.SafeJoin(absRoot, filepath.FromSlash(name))
		if err != nil {
			return nil, fmt.Errorf("unit %q: %w", name, err)
		}
		unit := ViewUnit{Name: name, Dir: dir}
		for _, f := range []struct {
			src string
			dst *string
		}{
			{entry.Template, &unit.Template},
			{entry.Script, &unit.Script},
			{entry.Stylesheet, &unit.Stylesheet},
		} {
			if f.src == "" {
				continue
			}
			resolved, err := pf.SafeJoin(absRoot, filepath.FromSlash(f.src))
			if err != nil {
				return nil, fmt.Errorf("unit %q: %w", name, err)
			}
			*f.dst = resolved
		}
		units[name] = unit
	}
	return units, nil
}
