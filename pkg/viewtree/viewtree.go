// Package viewtree discovers the view units that live under a view root.
//
// A view unit is a directory holding up to one template, one script and one
// stylesheet, each named <basename>.<ext>. A directory becomes a unit only if
// it has a template or a script; a stylesheet on its own is ignored.
package viewtree

import (
	"errors"
	"sort"
)

// ErrRootNotFound is returned when the view root does not exist.
var ErrRootNotFound = errors.New("view root not found")

// Layout describes the file naming convention of a view unit.
type Layout struct {
	Basename    string
	TemplateExt string
	ScriptExt   string
	StyleExt    string
}

// DefaultLayout is index.art / index.js / index.css.
func DefaultLayout() Layout {
	return Layout{
		Basename:    "index",
		TemplateExt: "art",
		ScriptExt:   "js",
		StyleExt:    "css",
	}
}

// TemplateFile returns the template file name, e.g. index.art.
func (l Layout) TemplateFile() string { return l.Basename + "." + l.TemplateExt }

// ScriptFile returns the script file name, e.g. index.js.
func (l Layout) ScriptFile() string { return l.Basename + "." + l.ScriptExt }

// StyleFile returns the stylesheet file name, e.g. index.css.
func (l Layout) StyleFile() string { return l.Basename + "." + l.StyleExt }

// ViewUnit is one discovered unit. Paths are absolute; empty means absent.
type ViewUnit struct {
	Name       string `json:"name" yaml:"name"`
	Dir        string `json:"dir" yaml:"dir"`
	Template   string `json:"template,omitempty" yaml:"template,omitempty"`
	Script     string `json:"script,omitempty" yaml:"script,omitempty"`
	Stylesheet string `json:"stylesheet,omitempty" yaml:"stylesheet,omitempty"`
}

// HasTemplate reports whether the unit has a template file.
func (u ViewUnit) HasTemplate() bool { return u.Template != "" }

// HasScript reports whether the unit has a script file.
func (u ViewUnit) HasScript() bool { return u.Script != "" }

// UnitSet is the result of a scan, keyed by page name. It is a snapshot and
// is never updated after the scan that produced it.
type UnitSet map[string]ViewUnit

// Names returns the page names in lexical order.
func (s UnitSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the units ordered by page name.
func (s UnitSet) Sorted() []ViewUnit {
	units := make([]ViewUnit, 0, len(s))
	for _, name := range s.Names() {
		units = append(units, s[name])
	}
	return units
}

// Equal reports whether both sets hold the same units.
func (s UnitSet) Equal(other UnitSet) bool {
	if len(s) != len(other) {
		return false
	}
	for name, unit := range s {
		if o, ok := other[name]; !ok || o != unit {
			return false
		}
	}
	return true
}

// Scanner enumerates the view units under a root.
type Scanner interface {
	Scan(root string) (UnitSet, error)
}
