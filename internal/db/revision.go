package db

import "sync/atomic"

// RevisionCounter is the single global revision source. Every accepted
// write is stamped with a strictly increasing revision from this
// counter, regardless of which table it touches.
//
// Revisions order writes globally:
//   - Deterministic ordering (no wall-clock race conditions)
//   - Gaps are legal, only the relative order carries meaning
//
// Thread-safety: RevisionCounter is safe for concurrent use (atomic
// operations), though the server serializes writes upstream anyway.
type RevisionCounter struct {
	rev atomic.Int64
}

// NewRevisionCounter creates a counter whose first Next returns 1.
func NewRevisionCounter() *RevisionCounter {
	return &RevisionCounter{}
}

// NewRevisionCounterAt creates a counter resuming after start.
// Used when reopening a durable store to continue past the highest
// stored revision.
func NewRevisionCounterAt(start int64) *RevisionCounter {
	c := &RevisionCounter{}
	c.rev.Store(start)
	return c
}

// Next returns the next revision and increments the counter.
// Calls are linearizable - each call returns a unique, increasing value.
func (c *RevisionCounter) Next() int64 {
	return c.rev.Add(1)
}

// Current returns the last issued revision without incrementing.
func (c *RevisionCounter) Current() int64 {
	return c.rev.Load()
}
