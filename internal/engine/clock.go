package engine

// SeqClock stamps kernels with a logical sequence number.
type SeqClock interface {
	Next() int64
	Current() int64
}

// Clock numbers kernel registrations within a session.
//
// The first registered kernel gets seq 1. Specializations draw from the
// same counter as their bases, so a cache listing ordered by seq replays
// registrations in the order the session made them.
//
// Clock is not safe for concurrent use. The engine stamps under its lock.
type Clock struct {
	seq int64
}

// NewClock creates a clock whose first stamp is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose first stamp is start+1, for continuing
// after the last seq recorded for a session.
func NewClockAt(start int64) *Clock {
	return &Clock{seq: start}
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	c.seq++
	return c.seq
}

// Current returns the last issued seq, or the start value if none.
func (c *Clock) Current() int64 {
	return c.seq
}
