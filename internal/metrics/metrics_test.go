package metrics_test

import (
	"testing"
	"time"

	"github.com/AndrewDonelson/anybox/internal/metrics"
	"github.com/stretchr/testify/assert"
)

func TestNoop_AllMethods(t *testing.T) {
	n := metrics.Noop{}
	n.RecordHit("l1")
	n.RecordMiss("l2")
	n.RecordLatency("get", 100*time.Millisecond)
	n.RecordError("put")
	n.RecordStore("inline")
	n.RecordRelease("heap")
}

func TestCounting(t *testing.T) {
	c := &metrics.Counting{}
	c.RecordHit("l1")
	c.RecordHit("l2")
	c.RecordMiss("l1")
	c.RecordError("get")
	c.RecordLatency("get", time.Millisecond)
	c.RecordStore("inline")
	c.RecordStore("heap")
	c.RecordStore("heap")
	c.RecordRelease("heap")

	assert.Equal(t, int64(2), c.Hits.Load())
	assert.Equal(t, int64(1), c.Misses.Load())
	assert.Equal(t, int64(1), c.Errors.Load())
	assert.Equal(t, int64(1), c.LatencySamples.Load())
	assert.Equal(t, int64(time.Millisecond), c.LatencyNanos.Load())
	assert.Equal(t, int64(1), c.InlineStores.Load())
	assert.Equal(t, int64(2), c.HeapStores.Load())
	assert.Equal(t, int64(1), c.HeapReleases.Load())
}
