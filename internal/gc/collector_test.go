package gc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go-nft-marker-gen/internal/repository"
)

// seedMarker writes the three companion files into a marker directory and
// returns their combined size.
func seedMarker(t *testing.T, root, name string) int64 {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Creating marker dir failed: %v", err)
	}
	var total int64
	for _, ext := range []string{"iset", "fset", "fset3"} {
		data := []byte("payload-" + ext)
		if err := os.WriteFile(filepath.Join(dir, name+"."+ext), data, 0o644); err != nil {
			t.Fatalf("Writing marker file failed: %v", err)
		}
		total += int64(len(data))
	}
	return total
}

func TestGCDryRunIsReadOnly(t *testing.T) {
	root := t.TempDir()
	seedMarker(t, root, "used")
	unusedSize := seedMarker(t, root, "unused1") + seedMarker(t, root, "unused2")

	collector := NewCollector(root, repository.NewStaticContentRepository("used"))
	report, err := collector.Run(context.Background(), true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !report.DryRun {
		t.Error("Expected dry-run flag in report")
	}
	if report.TotalMarkers != 3 || report.UsedMarkers != 1 || report.UnusedMarkers != 2 {
		t.Errorf("Unexpected counts: %+v", report)
	}
	if report.DeletedCount != 2 {
		t.Errorf("Expected 2 deletable markers, got %d", report.DeletedCount)
	}
	if report.FreedBytes != unusedSize {
		t.Errorf("Expected %d freed bytes, got %d", unusedSize, report.FreedBytes)
	}

	// No filesystem mutation.
	for _, name := range []string{"used", "unused1", "unused2"} {
		if _, err := os.Stat(filepath.Join(root, name)); err != nil {
			t.Errorf("Expected marker %s untouched, stat failed: %v", name, err)
		}
	}
}

func TestGCNeverDeletesInUseMarkers(t *testing.T) {
	root := t.TempDir()
	seedMarker(t, root, "used")
	unusedSize := seedMarker(t, root, "stale")

	collector := NewCollector(root, repository.NewStaticContentRepository("used"))
	report, err := collector.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.DeletedCount != 1 {
		t.Errorf("Expected 1 deletion, got %d", report.DeletedCount)
	}
	if report.FreedBytes != unusedSize {
		t.Errorf("Expected %d freed bytes, got %d", unusedSize, report.FreedBytes)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Expected no errors, got %v", report.Errors)
	}

	if _, err := os.Stat(filepath.Join(root, "used")); err != nil {
		t.Errorf("In-use marker was deleted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "stale")); !os.IsNotExist(err) {
		t.Error("Expected stale marker to be deleted")
	}
}

func TestGCIgnoresLooseFiles(t *testing.T) {
	root := t.TempDir()
	seedMarker(t, root, "only")
	if err := os.WriteFile(filepath.Join(root, "README.txt"), []byte("notes"), 0o644); err != nil {
		t.Fatalf("Writing loose file failed: %v", err)
	}

	collector := NewCollector(root, repository.NewStaticContentRepository())
	report, err := collector.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.TotalMarkers != 1 {
		t.Errorf("Expected loose files to be skipped, total=%d", report.TotalMarkers)
	}
	if _, err := os.Stat(filepath.Join(root, "README.txt")); err != nil {
		t.Errorf("Loose file was touched: %v", err)
	}
}

func TestGCMissingRootIsEmptyRun(t *testing.T) {
	collector := NewCollector(filepath.Join(t.TempDir(), "nope"), repository.NewStaticContentRepository())
	report, err := collector.Run(context.Background(), false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.TotalMarkers != 0 || report.DeletedCount != 0 {
		t.Errorf("Expected empty report, got %+v", report)
	}
}
