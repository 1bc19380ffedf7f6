package chat

import "sort"

// Roster is the set of online users. The server always pushes the full
// current set, so updates replace rather than diff.
type Roster struct {
	names map[string]struct{}
}

func NewRoster() *Roster {
	return &Roster{names: map[string]struct{}{}}
}

// Replace swaps in a new full roster.
func (r *Roster) Replace(names []string) {
	next := make(map[string]struct{}, len(names))
	for _, name := range names {
		next[name] = struct{}{}
	}
	r.names = next
}

func (r *Roster) Contains(name string) bool {
	_, ok := r.names[name]
	return ok
}

func (r *Roster) Len() int {
	return len(r.names)
}

// Snapshot returns the roster sorted lexicographically for display. Sorting
// is presentation only; the stored set is unordered.
func (r *Roster) Snapshot() []string {
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
