// Package provenance records which generated cues came from which source cue.
package provenance

import (
	"slices"
	"sync"
)

// Entry lists the generated cue texts for one source cue, in output order.
type Entry struct {
	Source    int      `json:"source" yaml:"source"`
	Original  string   `json:"original" yaml:"original"`
	Generated []string `json:"generated" yaml:"generated"`
}

// Builder collects entries while a run is in progress. It is safe for
// concurrent use.
type Builder struct {
	mu        sync.Mutex
	originals map[int]string
	generated map[int][]string
}

func NewBuilder() *Builder {
	return &Builder{
		originals: make(map[int]string),
		generated: make(map[int][]string),
	}
}

// SetOriginal stores the source text for a cue.
func (b *Builder) SetOriginal(source int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.originals[source] = text
}

// Record appends a generated cue text to the source's entry.
func (b *Builder) Record(source int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generated[source] = append(b.generated[source], text)
}

// Build returns an immutable snapshot ordered by source index.
func (b *Builder) Build() Map {
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[int]struct{}, len(b.originals)+len(b.generated))
	var sources []int
	for src := range b.originals {
		seen[src] = struct{}{}
		sources = append(sources, src)
	}
	for src := range b.generated {
		if _, ok := seen[src]; !ok {
			sources = append(sources, src)
		}
	}
	slices.Sort(sources)

	entries := make([]Entry, len(sources))
	for i, src := range sources {
		entries[i] = Entry{
			Source:    src,
			Original:  b.originals[src],
			Generated: slices.Clone(b.generated[src]),
		}
	}
	return Map{entries: entries}
}

// Map is the finished provenance of a run. Accessors return copies.
type Map struct {
	entries []Entry
}

func (m Map) Len() int { return len(m.entries) }

// Sources returns the source indexes in ascending order.
func (m Map) Sources() []int {
	out := make([]int, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Source
	}
	return out
}

// Generated returns the generated texts for source, or nil.
func (m Map) Generated(source int) []string {
	i, ok := slices.BinarySearchFunc(m.entries, source, func(e Entry, target int) int {
		return e.Source - target
	})
	if !ok {
		return nil
	}
	return slices.Clone(m.entries[i].Generated)
}

// Entries returns a deep copy of every entry.
func (m Map) Entries() []Entry {
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		e.Generated = slices.Clone(e.Generated)
		out[i] = e
	}
	return out
}
