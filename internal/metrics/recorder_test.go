package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSnapshotDerivedValues(t *testing.T) {
	r := NewRecorder()

	for i := 0; i < 10; i++ {
		r.RecordGeneration(time.Second)
	}
	for i := 0; i < 8; i++ {
		r.RecordCacheHit()
	}
	for i := 0; i < 2; i++ {
		r.RecordCacheMiss()
	}

	snap := r.Snapshot()
	if snap.TotalGenerated != 10 {
		t.Errorf("Expected 10 generations, got %d", snap.TotalGenerated)
	}
	if snap.TotalTime != 10*time.Second {
		t.Errorf("Expected 10s total time, got %s", snap.TotalTime)
	}
	if snap.AvgTimePerMarker != time.Second {
		t.Errorf("Expected 1s average, got %s", snap.AvgTimePerMarker)
	}
	if snap.CacheHitRate != 0.8 {
		t.Errorf("Expected hit rate 0.8, got %f", snap.CacheHitRate)
	}
}

func TestSnapshotZeroDenominators(t *testing.T) {
	snap := NewRecorder().Snapshot()

	if snap.AvgTimePerMarker != 0 {
		t.Errorf("Expected zero average with no generations, got %s", snap.AvgTimePerMarker)
	}
	if snap.CacheHitRate != 0 {
		t.Errorf("Expected zero hit rate with no lookups, got %f", snap.CacheHitRate)
	}
}

func TestReset(t *testing.T) {
	r := NewRecorder()
	r.RecordGeneration(time.Second)
	r.RecordCacheHit()
	r.RecordCacheMiss()

	r.Reset()

	snap := r.Snapshot()
	if snap.TotalGenerated != 0 || snap.TotalTime != 0 || snap.CacheHits != 0 || snap.CacheMisses != 0 {
		t.Errorf("Expected zeroed snapshot after reset, got %+v", snap)
	}
}

func TestRecorderConcurrentUse(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordGeneration(time.Millisecond)
				r.RecordCacheHit()
				r.RecordCacheMiss()
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	if snap.TotalGenerated != 800 {
		t.Errorf("Expected 800 generations, got %d", snap.TotalGenerated)
	}
	if snap.CacheHits != 800 || snap.CacheMisses != 800 {
		t.Errorf("Expected 800 hits and misses, got %d/%d", snap.CacheHits, snap.CacheMisses)
	}
	if snap.CacheHitRate != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %f", snap.CacheHitRate)
	}
}

func TestPrometheusSinkExposesSnapshot(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < 4; i++ {
		r.RecordGeneration(250 * time.Millisecond)
	}
	r.RecordCacheHit()
	r.RecordCacheMiss()

	sink := NewPrometheusSink()
	sink.Publish(r.Snapshot())

	ts := httptest.NewServer(sink.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Reading scrape body failed: %v", err)
	}

	text := string(body)
	for _, metric := range []string{
		"marker_engine_markers_generated_total 4",
		"marker_engine_analysis_cache_hit_rate 0.5",
	} {
		if !strings.Contains(text, metric) {
			t.Errorf("Expected scrape output to contain %q", metric)
		}
	}
}
