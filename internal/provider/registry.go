package provider

import (
	"sort"
	"sync"
)

// AnyLanguage registers a source for every language.
const AnyLanguage = "*"

type registration struct {
	id        int
	name      string
	source    SyntaxSource
	score     int
	languages []string
}

// match returns how well the registration fits languageID: 2 for an exact
// id, 1 for a wildcard, 0 for no match.
func (r *registration) match(languageID string) int {
	best := 0
	for _, l := range r.languages {
		switch l {
		case languageID:
			return 2
		case AnyLanguage:
			best = 1
		}
	}
	return best
}

// Registry holds the syntax sources known to the process.
type Registry struct {
	mu      sync.RWMutex
	entries []*registration
	nextID  int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds source for the given languages (AnyLanguage for all) and
// returns a function that removes it. Higher scores are asked first.
func (r *Registry) Register(name string, source SyntaxSource, score int, languages ...string) (unregister func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := &registration{id: r.nextID, name: name, source: source, score: score, languages: languages}
	r.nextID++
	r.entries = append(r.entries, reg)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, e := range r.entries {
			if e.id == reg.id {
				r.entries = append(r.entries[:i], r.entries[i+1:]...)
				return
			}
		}
	}
}

// Ordered returns the sources registered for languageID, best first:
// higher score, then exact language over wildcard, then registration order.
func (r *Registry) Ordered(languageID string) []SyntaxSource {
	regs := r.ordered(languageID)
	out := make([]SyntaxSource, len(regs))
	for i, reg := range regs {
		out[i] = reg.source
	}
	return out
}

// Names returns the names of the sources for languageID in Ordered order.
func (r *Registry) Names(languageID string) []string {
	regs := r.ordered(languageID)
	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.name
		if names[i] == "" {
			names[i] = sourceName(reg.source)
		}
	}
	return names
}

func (r *Registry) ordered(languageID string) []*registration {
	r.mu.RLock()
	var regs []*registration
	var matches []int
	for _, e := range r.entries {
		if m := e.match(languageID); m > 0 {
			regs = append(regs, e)
			matches = append(matches, m)
		}
	}
	r.mu.RUnlock()

	idx := make([]int, len(regs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := regs[idx[a]], regs[idx[b]]
		if ra.score != rb.score {
			return ra.score > rb.score
		}
		return matches[idx[a]] > matches[idx[b]]
	})
	out := make([]*registration, len(idx))
	for i, k := range idx {
		out[i] = regs[k]
	}
	return out
}

// Has reports whether any source is registered for languageID.
func (r *Registry) Has(languageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.match(languageID) > 0 {
			return true
		}
	}
	return false
}
