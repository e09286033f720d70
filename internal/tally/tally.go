// Package tally holds the counters shared by concurrent scan stages.
package tally

import "sync/atomic"

// Counters are safe for concurrent use. The zero value is ready.
type Counters struct {
	processed atomic.Int64
	preloaded atomic.Int64
	duplicate atomic.Int64
	unique    atomic.Int64
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Processed int64 `json:"processed" yaml:"processed"`
	Preloaded int64 `json:"preloaded" yaml:"preloaded"`
	Duplicate int64 `json:"duplicate" yaml:"duplicate"`
	Unique    int64 `json:"unique" yaml:"unique"`
}

// Processed counts one file whose stage finished.
func (c *Counters) Processed() {
	if c != nil {
		c.processed.Add(1)
	}
}

// Preloaded counts one value served from the cache.
func (c *Counters) Preloaded() {
	if c != nil {
		c.preloaded.Add(1)
	}
}

// Duplicate counts one file that joined an existing group.
func (c *Counters) Duplicate() {
	if c != nil {
		c.duplicate.Add(1)
	}
}

// Unique counts one group that gained its second member.
func (c *Counters) Unique() {
	if c != nil {
		c.unique.Add(1)
	}
}

// Snapshot reads all counters.
func (c *Counters) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	return Snapshot{
		Processed: c.processed.Load(),
		Preloaded: c.preloaded.Load(),
		Duplicate: c.duplicate.Load(),
		Unique:    c.unique.Load(),
	}
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	if c == nil {
		return
	}
	c.processed.Store(0)
	c.preloaded.Store(0)
	c.duplicate.Store(0)
	c.unique.Store(0)
}
