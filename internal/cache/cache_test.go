package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/pkg/models"
)

func testAnalysis() models.QualityAnalysis {
	return models.QualityAnalysis{
		Brightness:     128,
		Contrast:       75,
		QualityClass:   models.QualityGood,
		Recommendation: "Image should track well in most conditions.",
		Width:          640,
		Height:         480,
	}
}

func TestCacheHitReturnsCachedFlag(t *testing.T) {
	c, err := NewAnalysisCache(time.Hour, "", nil)
	if err != nil {
		t.Fatalf("NewAnalysisCache failed: %v", err)
	}

	c.Put("fp1", testAnalysis())

	got, ok := c.Get("fp1")
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if !got.Cached {
		t.Error("Expected Cached=true on a cache hit")
	}
	if got.Contrast != 75 || got.QualityClass != models.QualityGood {
		t.Errorf("Cached analysis mutated: %+v", got)
	}
}

func TestCacheMissOnUnknownFingerprint(t *testing.T) {
	c, _ := NewAnalysisCache(time.Hour, "", nil)

	if _, ok := c.Get("unknown"); ok {
		t.Error("Expected miss for unknown fingerprint")
	}
}

func TestCacheRecordsHitsAndMisses(t *testing.T) {
	recorder := metrics.NewRecorder()
	c, _ := NewAnalysisCache(time.Hour, "", recorder)

	c.Put("fp1", testAnalysis())
	c.Get("fp1")
	c.Get("missing")

	snap := recorder.Snapshot()
	if snap.CacheHits != 1 {
		t.Errorf("Expected 1 hit, got %d", snap.CacheHits)
	}
	if snap.CacheMisses != 1 {
		t.Errorf("Expected 1 miss, got %d", snap.CacheMisses)
	}
}

func TestCacheLazyExpiry(t *testing.T) {
	c, _ := NewAnalysisCache(time.Hour, "", nil)

	c.PutWithTTL("fp1", testAnalysis(), time.Nanosecond)
	time.Sleep(time.Millisecond)

	if _, ok := c.Get("fp1"); ok {
		t.Error("Expected expired entry to miss")
	}
	if c.Len() != 0 {
		t.Errorf("Expected expired entry to be evicted, len=%d", c.Len())
	}
}

func TestCacheDiskPersistence(t *testing.T) {
	dir := t.TempDir()

	first, err := NewAnalysisCache(time.Hour, dir, nil)
	if err != nil {
		t.Fatalf("NewAnalysisCache failed: %v", err)
	}
	first.Put("fp1", testAnalysis())

	// A fresh cache over the same directory revives the entry.
	second, err := NewAnalysisCache(time.Hour, dir, nil)
	if err != nil {
		t.Fatalf("NewAnalysisCache failed: %v", err)
	}
	got, ok := second.Get("fp1")
	if !ok {
		t.Fatal("Expected entry to be revived from disk")
	}
	if !got.Cached || got.Contrast != 75 {
		t.Errorf("Revived entry wrong: %+v", got)
	}
}

func TestCacheCorruptDiskEntryDegradesToMiss(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fpbad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Writing corrupt entry failed: %v", err)
	}

	c, _ := NewAnalysisCache(time.Hour, dir, nil)
	if _, ok := c.Get("fpbad"); ok {
		t.Error("Expected corrupt entry to degrade to a miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected corrupt entry file to be removed")
	}
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	c, _ := NewAnalysisCache(time.Hour, dir, nil)

	c.Put("fp1", testAnalysis())
	c.Put("fp2", testAnalysis())
	c.PutWithTTL("fp3", testAnalysis(), time.Nanosecond)
	time.Sleep(time.Millisecond)

	// Expired-only pass.
	if removed := c.Clear(false); removed != 1 {
		t.Errorf("Expected 1 expired entry removed, got %d", removed)
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 entries after expired-only clear, got %d", c.Len())
	}

	// Full clear also empties the directory.
	if removed := c.Clear(true); removed != 2 {
		t.Errorf("Expected 2 entries removed, got %d", removed)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(matches) != 0 {
		t.Errorf("Expected empty cache directory, found %d files", len(matches))
	}
}

func TestFingerprintChangesWithMtimeAndSize(t *testing.T) {
	base := time.Now()
	fp := FingerprintOf("/img/a.png", base, 1000)

	if FingerprintOf("/img/a.png", base, 1000) != fp {
		t.Error("Expected stable fingerprint for identical inputs")
	}
	if FingerprintOf("/img/a.png", base.Add(time.Second), 1000) == fp {
		t.Error("Expected mtime change to alter the fingerprint")
	}
	if FingerprintOf("/img/a.png", base, 1001) == fp {
		t.Error("Expected size change to alter the fingerprint")
	}
	if FingerprintOf("/img/b.png", base, 1000) == fp {
		t.Error("Expected path change to alter the fingerprint")
	}
}

func TestStatSourceErrors(t *testing.T) {
	if _, err := StatSource(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("Expected error for a missing file")
	} else if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	if _, err := StatSource(t.TempDir()); err == nil {
		t.Error("Expected error for a directory")
	}
}

func TestStatSourceFingerprint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.png")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("Writing test file failed: %v", err)
	}

	src, err := StatSource(path)
	if err != nil {
		t.Fatalf("StatSource failed: %v", err)
	}
	if src.Size != 4 {
		t.Errorf("Expected size 4, got %d", src.Size)
	}
	want := FingerprintOf(path, src.ModTime, src.Size)
	if src.Fingerprint != want {
		t.Errorf("Expected fingerprint %s, got %s", want, src.Fingerprint)
	}
}
