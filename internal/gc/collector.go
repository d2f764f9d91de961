package gc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/internal/repository"
	"go-nft-marker-gen/pkg/models"
)

// Collector reconciles marker directories under the markers root against
// the content registry and removes the ones nothing references anymore.
type Collector struct {
	markersRoot string
	contentRepo repository.ContentRepository
}

// NewCollector creates a collector over the given markers root.
func NewCollector(markersRoot string, contentRepo repository.ContentRepository) *Collector {
	return &Collector{
		markersRoot: markersRoot,
		contentRepo: contentRepo,
	}
}

// Run enumerates marker directories, asks the content repository which names
// are still in use, and deletes the rest. Markers the repository reports as
// in use are never deleted. With dryRun=true nothing is mutated; the report
// only enumerates what a real run would delete. Per-item deletion failures
// are collected into the report and do not abort the run.
func (c *Collector) Run(ctx context.Context, dryRun bool) (models.GCReport, error) {
	report := models.GCReport{DryRun: dryRun}

	inUse, err := c.contentRepo.ListInUseMarkerIDs(ctx)
	if err != nil {
		return report, apperrors.NewGCError("listing in-use markers", err)
	}

	entries, err := os.ReadDir(c.markersRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, apperrors.NewGCError("reading markers root", err)
	}

	log := logger.WithField("dry_run", dryRun)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		report.TotalMarkers++

		if _, used := inUse[name]; used {
			report.UsedMarkers++
			continue
		}
		report.UnusedMarkers++

		dir := filepath.Join(c.markersRoot, name)
		size, sizeErr := dirSize(dir)
		if sizeErr != nil {
			report.Errors = append(report.Errors,
				fmt.Sprintf("sizing %s: %v", name, sizeErr))
		}

		if dryRun {
			report.DeletedCount++
			report.FreedBytes += size
			continue
		}

		if err := os.RemoveAll(dir); err != nil {
			gcErr := apperrors.NewGCError(fmt.Sprintf("deleting marker %s", name), err)
			logger.WithError(gcErr).Warn("Marker deletion failed")
			report.Errors = append(report.Errors, gcErr.Error())
			continue
		}
		report.DeletedCount++
		report.FreedBytes += size
		logger.WithMarker(name).WithField("freed_bytes", size).Info("Deleted unused marker")
	}

	log.WithFields(map[string]interface{}{
		"total":   report.TotalMarkers,
		"used":    report.UsedMarkers,
		"deleted": report.DeletedCount,
		"freed":   report.FreedBytes,
	}).Info("Garbage collection finished")

	return report, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
