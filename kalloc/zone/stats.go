package zone

import "sync/atomic"

// Stats counts zone traffic. The zero value is ready to use and safe for
// concurrent updates.
type Stats struct {
	allocs atomic.Uint64
	frees  atomic.Uint64
	bytes  atomic.Int64 // live bytes
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Allocs    uint64
	Frees     uint64
	LiveBytes int64
}

func (s *Stats) recordAlloc(size uint64) {
	s.allocs.Add(1)
	s.bytes.Add(int64(size))
}

func (s *Stats) recordFree(size uint64) {
	s.frees.Add(1)
	s.bytes.Add(-int64(size))
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Allocs:    s.allocs.Load(),
		Frees:     s.frees.Load(),
		LiveBytes: s.bytes.Load(),
	}
}

// Live returns allocations minus frees.
func (s StatsSnapshot) Live() uint64 { return s.Allocs - s.Frees }
