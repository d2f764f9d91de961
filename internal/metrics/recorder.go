package metrics

import (
	"sync/atomic"
	"time"

	"go-nft-marker-gen/pkg/models"
)

// Recorder holds the process-wide engine counters. All methods are safe for
// concurrent use; counters only move forward between explicit Resets.
type Recorder struct {
	totalGenerated atomic.Int64
	totalTimeNanos atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
}

// NewRecorder creates a zeroed recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordGeneration accounts one finished marker generation.
func (r *Recorder) RecordGeneration(elapsed time.Duration) {
	r.totalGenerated.Add(1)
	r.totalTimeNanos.Add(int64(elapsed))
}

// RecordCacheHit increments the cache hit counter.
func (r *Recorder) RecordCacheHit() {
	r.cacheHits.Add(1)
}

// RecordCacheMiss increments the cache miss counter.
func (r *Recorder) RecordCacheMiss() {
	r.cacheMisses.Add(1)
}

// Snapshot returns the current counters plus derived rates. Rates with a
// zero denominator are reported as zero.
func (r *Recorder) Snapshot() models.MetricsSnapshot {
	snap := models.MetricsSnapshot{
		TotalGenerated: r.totalGenerated.Load(),
		TotalTime:      time.Duration(r.totalTimeNanos.Load()),
		CacheHits:      r.cacheHits.Load(),
		CacheMisses:    r.cacheMisses.Load(),
	}

	if snap.TotalGenerated > 0 {
		snap.AvgTimePerMarker = snap.TotalTime / time.Duration(snap.TotalGenerated)
	}
	if lookups := snap.CacheHits + snap.CacheMisses; lookups > 0 {
		snap.CacheHitRate = float64(snap.CacheHits) / float64(lookups)
	}
	return snap
}

// Reset zeroes every counter. Used by tests and explicit operator action.
func (r *Recorder) Reset() {
	r.totalGenerated.Store(0)
	r.totalTimeNanos.Store(0)
	r.cacheHits.Store(0)
	r.cacheMisses.Store(0)
}

// Sink receives periodic recorder snapshots.
type Sink interface {
	Publish(snapshot models.MetricsSnapshot)
}
