package livesync

import "sort"

// Item is anything with a stable server-assigned identifier.
type Item interface {
	Key() string
}

// IDSet is a set of item identifiers.
type IDSet map[string]struct{}

// IDsOf collects the identifiers of items.
func IDsOf[T Item](items []T) IDSet {
	set := make(IDSet, len(items))
	for _, it := range items {
		set[it.Key()] = struct{}{}
	}
	return set
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Diff returns the ids of fetched that are not in previous, in fetched order.
//
// A nil previous means no baseline exists yet (first load): nothing is new.
// An empty, non-nil previous is a baseline that happened to be empty, so
// every fetched id is new.
func Diff[T Item](previous IDSet, fetched []T) []string {
	if previous == nil {
		return nil
	}
	var fresh []string
	seen := make(map[string]struct{}, len(fetched))
	for _, it := range fetched {
		id := it.Key()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if !previous.Has(id) {
			fresh = append(fresh, id)
		}
	}
	return fresh
}
