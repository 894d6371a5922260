// Package sourcemap implements the node-index to source-location mapping
// assigned during loading, and the rebasing applying parameters requires.
package sourcemap

import "fmt"

// Location is a "file:line:column" source position.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// SourceMap is an ordered mapping from term-node index to a Location. It
// is keyed by the same stable node index term.Term.NodeIndex returns.
type SourceMap struct {
	entries map[int64]Location
	order   []int64
}

func New() *SourceMap {
	return &SourceMap{entries: make(map[int64]Location)}
}

// Set records loc at index k, preserving first-insertion order for Keys.
func (m *SourceMap) Set(k int64, loc Location) {
	if _, exists := m.entries[k]; !exists {
		m.order = append(m.order, k)
	}
	m.entries[k] = loc
}

// Lookup returns the location recorded at k, if any.
func (m *SourceMap) Lookup(k int64) (Location, bool) {
	loc, ok := m.entries[k]
	return loc, ok
}

// Len reports the number of entries.
func (m *SourceMap) Len() int { return len(m.entries) }

// Keys returns the recorded indices in insertion order.
func (m *SourceMap) Keys() []int64 {
	return append([]int64(nil), m.order...)
}

// Rebase returns a new SourceMap with every key shifted upward by shift.
// Applying p parameters to a program shifts every node index up by p, so
// the active source map must shift its keys the same way or every lookup
// after the first application would resolve against a stale index.
func (m *SourceMap) Rebase(shift int64) *SourceMap {
	out := New()
	for _, k := range m.order {
		out.Set(k+shift, m.entries[k])
	}
	return out
}
