// Package metrics provides the Recorder interface plus noop and
// counting implementations.
package metrics

import (
	"sync/atomic"
	"time"
)

// Recorder is the interface for recording operational metrics: tier
// hits and misses for the store, and per-strategy placement counts for
// the container itself.
type Recorder interface {
	RecordHit(tier string)
	RecordMiss(tier string)
	RecordLatency(op string, d time.Duration)
	RecordError(op string)
	// RecordStore is called once per payload placement with the
	// storage strategy used ("inline" or "heap").
	RecordStore(strategy string)
	// RecordRelease is called once per heap payload release.
	RecordRelease(strategy string)
}

// Noop is a Recorder that discards all data.
type Noop struct{}

func (Noop) RecordHit(tier string)                    {}
func (Noop) RecordMiss(tier string)                   {}
func (Noop) RecordLatency(op string, d time.Duration) {}
func (Noop) RecordError(op string)                    {}
func (Noop) RecordStore(strategy string)              {}
func (Noop) RecordRelease(strategy string)            {}

// Counting is a Recorder backed by atomic counters. It is what makes
// inline-vs-heap placement observable in tests without allocator
// instrumentation.
type Counting struct {
	Hits           atomic.Int64
	Misses         atomic.Int64
	Errors         atomic.Int64
	InlineStores   atomic.Int64
	HeapStores     atomic.Int64
	HeapReleases   atomic.Int64
	LatencySamples atomic.Int64
	LatencyNanos   atomic.Int64
}

func (c *Counting) RecordHit(tier string)  { c.Hits.Add(1) }
func (c *Counting) RecordMiss(tier string) { c.Misses.Add(1) }

func (c *Counting) RecordLatency(op string, d time.Duration) {
	c.LatencySamples.Add(1)
	c.LatencyNanos.Add(int64(d))
}

func (c *Counting) RecordError(op string) { c.Errors.Add(1) }

func (c *Counting) RecordStore(strategy string) {
	if strategy == "inline" {
		c.InlineStores.Add(1)
		return
	}
	c.HeapStores.Add(1)
}

func (c *Counting) RecordRelease(strategy string) {
	c.HeapReleases.Add(1)
}
