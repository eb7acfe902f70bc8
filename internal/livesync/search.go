package livesync

import "strings"

// Searchable exposes the text fields local search matches against.
type Searchable interface {
	SearchText() []string
}

// Search returns the items with any field containing query, ignoring case.
// It never touches the network and only sees what has already been fetched.
// An empty query returns every item.
func Search[T Searchable](items []T, query string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q == "" || matches(it, q) {
			out = append(out, it)
		}
	}
	return out
}

func matches[T Searchable](it T, q string) bool {
	for _, field := range it.SearchText() {
		if field != "" && strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
