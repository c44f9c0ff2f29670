package graph

import (
	"fmt"

	"github.com/fulmenhq/pagegraph/pkg/logger"
	"github.com/fulmenhq/pagegraph/pkg/viewname"
	"github.com/fulmenhq/pagegraph/pkg/viewtree"
)

// Options are the explicit inputs of a graph build.
type Options struct {
	Root         string
	Mode         Mode
	Strict       bool
	Inject       string
	SharedChunks []string
	FixedEntries []FixedEntry
}

// Rejected is a discovered unit left out of the graph because its name does
// not follow the page naming convention.
type Rejected struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Reason string `json:"reason" yaml:"reason" toml:"reason"`
}

// Graph is the full output of one build pass. It is recomputed from the
// filesystem every time and never cached.
type Graph struct {
	Root         string           `json:"root"`
	Mode         Mode             `json:"mode"`
	Units        viewtree.UnitSet `json:"-"`
	Entries      EntryMap         `json:"entries"`
	SharedChunks []string         `json:"shared_chunks"`
	Pages        []PageDescriptor `json:"pages"`
	Rejected     []Rejected       `json:"rejected,omitempty"`
}

// Build scans the view root and derives entries, chunk lists and page
// descriptors. Units whose names break the page grammar are reported in
// Graph.Rejected, or fail the build when opts.Strict is set.
func Build(scanner viewtree.Scanner, opts Options) (*Graph, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeProduction
	}

	scanned, err := scanner.Scan(opts.Root)
	if err != nil {
		return nil, err
	}

	units := make(viewtree.UnitSet, len(scanned))
	var rejected []Rejected
	for _, unit := range scanned.Sorted() {
		if err := viewname.Check(unit.Name); err != nil {
			if opts.Strict {
				return nil, fmt.Errorf("view unit %s: %w", unit.Dir, err)
			}
			logger.Warn("Skipping view unit with non-conforming name",
				logger.String("unit", unit.Name),
				logger.String("dir", unit.Dir))
			rejected = append(rejected, Rejected{Name: unit.Name, Reason: err.Error()})
			continue
		}
		units[unit.Name] = unit
	}

	entries, err := BuildEntryMap(units, opts.FixedEntries, mode)
	if err != nil {
		return nil, err
	}

	shared := SharedChunks(opts.SharedChunks, opts.FixedEntries, mode)
	pages := GenerateDescriptors(units, entries, shared, opts.Inject)

	logger.Debug("Built page graph",
		logger.String("mode", string(mode)),
		logger.Int("entries", len(entries)),
		logger.Int("pages", len(pages)),
		logger.Int("rejected", len(rejected)))

	return &Graph{
		Root:         opts.Root,
		Mode:         mode,
		Units:        units,
		Entries:      entries,
		SharedChunks: shared,
		Pages:        pages,
		Rejected:     rejected,
	}, nil
}
