package stage

import "sync/atomic"

// Stats is a point-in-time snapshot of a stage's counters.
type Stats struct {
	Consumed  uint64
	Published uint64
	Empty     uint64
	Faults    uint64
	Panics    uint64
	Cancelled uint64
	// Rejected counts outputs the downstream pipe refused (Reject policy
	// or closed pipe).
	Rejected uint64
}

type counters struct {
	consumed  atomic.Uint64
	published atomic.Uint64
	empty     atomic.Uint64
	faults    atomic.Uint64
	panics    atomic.Uint64
	cancelled atomic.Uint64
	rejected  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Consumed:  c.consumed.Load(),
		Published: c.published.Load(),
		Empty:     c.empty.Load(),
		Faults:    c.faults.Load(),
		Panics:    c.panics.Load(),
		Cancelled: c.cancelled.Load(),
		Rejected:  c.rejected.Load(),
	}
}
