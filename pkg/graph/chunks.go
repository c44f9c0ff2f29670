package graph

// PlanChunks returns the chunks an output page must load, in load order:
// the shared chunks as given, then the page's own bundle last, since page
// code may rely on globals the shared bundles set up. The second result is
// false for pages without an entry; such pages are not chunk-scoped.
func PlanChunks(page string, entries EntryMap, shared []string) ([]string, bool) {
	if _, ok := entries[page]; !ok {
		return nil, false
	}
	chunks := make([]string, 0, len(shared)+1)
	chunks = append(chunks, shared...)
	return append(chunks, page), true
}

// SharedChunks drops shared chunk names that belong to fixed entries not
// built in mode. Names that are not fixed entries (split chunks such as
// commons or vendors) are kept. Order is preserved.
func SharedChunks(shared []string, fixed []FixedEntry, mode Mode) []string {
	inactive := make(map[string]struct{})
	for _, f := range fixed {
		if !f.ActiveIn(mode) {
			inactive[f.Name] = struct{}{}
		}
	}
	out := make([]string, 0, len(shared))
	for _, name := range shared {
		if _, skip := inactive[name]; skip {
			continue
		}
		out = append(out, name)
	}
	return out
}
