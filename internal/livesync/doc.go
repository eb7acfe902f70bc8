// Package livesync keeps a fetched collection fresh while it is on screen.
//
// A Poller owns one feed: it re-fetches on an interval while the view is
// visible, pauses while hidden, marks entries that appeared since the previous
// fetch as new for a fixed time, and discards responses that were overtaken by
// a newer request or that arrive after the view has gone away.
//
// The pieces are usable on their own: Diff computes new ids, Highlighter
// expires new markers, Search filters a fetched page locally.
package livesync
