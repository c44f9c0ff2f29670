package graph

import (
	"sort"

	"github.com/fulmenhq/pagegraph/pkg/viewtree"
)

// DefaultInject anchors generated tags at the end of the body.
const DefaultInject = "body"

// ChunksSortManual tells the bundler to keep the chunk order verbatim.
const ChunksSortManual = "manual"

// PageDescriptor instructs the bundler how to produce one output page.
type PageDescriptor struct {
	Page     string `json:"page" yaml:"page" toml:"page"`
	Filename string `json:"filename" yaml:"filename" toml:"filename"`
	Template string `json:"template" yaml:"template" toml:"template"`
	Inject   string `json:"inject" yaml:"inject" toml:"inject"`
	// Chunks is set only for pages with an entry. Without it the bundler
	// injects every produced bundle.
	Chunks         []string `json:"chunks,omitempty" yaml:"chunks,omitempty" toml:"chunks,omitempty"`
	ChunksSortMode string   `json:"chunks_sort_mode,omitempty" yaml:"chunks_sort_mode,omitempty" toml:"chunks_sort_mode,omitempty"`
}

// Scoped reports whether the page loads an explicit chunk list.
func (d PageDescriptor) Scoped() bool {
	return len(d.Chunks) > 0
}

// GenerateDescriptors emits one descriptor per unit with a template, whether
// or not it has a script. The result is ordered by filename. An empty inject
// falls back to DefaultInject.
func GenerateDescriptors(units viewtree.UnitSet, entries EntryMap, shared []string, inject string) []PageDescriptor {
	if inject == "" {
		inject = DefaultInject
	}

	pages := make([]PageDescriptor, 0, len(units))
	for _, unit := range units.Sorted() {
		if !unit.HasTemplate() {
			continue
		}
		desc := PageDescriptor{
			Page:     unit.Name,
			Filename: unit.Name + ".html",
			Template: unit.Template,
			Inject:   inject,
		}
		if chunks, ok := PlanChunks(unit.Name, entries, shared); ok {
			desc.Chunks = chunks
			desc.ChunksSortMode = ChunksSortManual
		}
		pages = append(pages, desc)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Filename < pages[j].Filename })
	return pages
}
