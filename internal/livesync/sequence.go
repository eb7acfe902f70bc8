package livesync

import "sync/atomic"

// Sequence hands out monotonically increasing request numbers so that a
// response can be checked against the newest request started since.
type Sequence struct {
	n atomic.Uint64
}

// Begin starts a request and returns its number.
func (s *Sequence) Begin() uint64 {
	return s.n.Add(1)
}

// Latest reports whether seq is still the newest request started.
func (s *Sequence) Latest(seq uint64) bool {
	return s.n.Load() == seq
}
