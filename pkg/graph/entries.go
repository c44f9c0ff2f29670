// Package graph assembles the build graph handed to the bundler: the entry
// map, the ordered chunk list of every scripted page and one output page
// descriptor per template.
//
// Everything here is a pure function of its arguments. The build mode is an
// explicit parameter; nothing reads process-wide state.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fulmenhq/pagegraph/pkg/viewname"
	"github.com/fulmenhq/pagegraph/pkg/viewtree"
)

// ErrDuplicateEntryName is returned when two bindings would share an entry name.
var ErrDuplicateEntryName = errors.New("duplicate entry name")

// Mode selects production or development behavior.
type Mode string

const (
	ModeProduction  Mode = "production"
	ModeDevelopment Mode = "development"
)

// ParseMode parses a mode name. The empty string means production.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "production", "prod":
		return ModeProduction, nil
	case "development", "dev":
		return ModeDevelopment, nil
	default:
		return "", fmt.Errorf("unknown build mode %q (want production or development)", s)
	}
}

// FixedEntry is a shared bundle that is always built, independent of the
// view tree, such as the baseline script loaded on every page.
type FixedEntry struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// Modes restricts the entry to the listed modes; empty means every mode.
	Modes []Mode `json:"modes,omitempty" yaml:"modes,omitempty" mapstructure:"modes"`
}

// ActiveIn reports whether the entry is built in mode.
func (f FixedEntry) ActiveIn(mode Mode) bool {
	if len(f.Modes) == 0 {
		return true
	}
	for _, m := range f.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// EntryMap binds entry names to script paths. It is a set of bindings; no
// order is implied.
type EntryMap map[string]string

// Names returns the entry names in lexical order.
func (m EntryMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildEntryMap binds every scripted unit to its script and merges the fixed
// entries active in mode.
//
// A fixed entry reserves its name as a namespace: a page equal to it, or
// whose first segment equals it, is rejected with ErrDuplicateEntryName
// regardless of mode. Unit names must already satisfy the page name grammar.
func BuildEntryMap(units viewtree.UnitSet, fixed []FixedEntry, mode Mode) (EntryMap, error) {
	reserved := make(map[string]struct{}, len(fixed))
	for _, f := range fixed {
		if strings.TrimSpace(f.Name) == "" {
			return nil, errors.New("fixed entry has no name")
		}
		if strings.TrimSpace(f.Path) == "" {
			return nil, fmt.Errorf("fixed entry %q has no path", f.Name)
		}
		if _, dup := reserved[f.Name]; dup {
			return nil, fmt.Errorf("%w: fixed entry %q is declared twice", ErrDuplicateEntryName, f.Name)
		}
		reserved[f.Name] = struct{}{}
	}

	entries := make(EntryMap, len(units)+len(fixed))
	for _, unit := range units.Sorted() {
		if !unit.HasScript() {
			continue
		}
		if err := viewname.Check(unit.Name); err != nil {
			return nil, err
		}
		if _, clash := reserved[unit.Name]; clash {
			return nil, fmt.Errorf("%w: page %q collides with fixed entry %q", ErrDuplicateEntryName, unit.Name, unit.Name)
		}
		namespace, _, _ := strings.Cut(unit.Name, "/")
		if _, clash := reserved[namespace]; clash {
			return nil, fmt.Errorf("%w: page %q collides with fixed entry %q", ErrDuplicateEntryName, unit.Name, namespace)
		}
		entries[unit.Name] = unit.Script
	}

	for _, f := range fixed {
		if !f.ActiveIn(mode) {
			continue
		}
		entries[f.Name] = f.Path
	}

	return entries, nil
}
