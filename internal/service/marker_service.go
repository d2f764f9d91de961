package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"go-nft-marker-gen/internal/analyzer"
	"go-nft-marker-gen/internal/cache"
	"go-nft-marker-gen/internal/encoder"
	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/extractor"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/internal/observer"
	"go-nft-marker-gen/internal/storage"
	"go-nft-marker-gen/pkg/models"
)

// MarkerService is the engine's front door: analysis with caching, and full
// generation (analyze, extract, encode) of NFT marker artifacts.
type MarkerService interface {
	AnalyzeFile(ctx context.Context, imagePath string) (models.QualityAnalysis, error)
	Generate(ctx context.Context, imagePath, markerName string, cfg models.GenerationConfig) (models.MarkerArtifact, error)
}

type markerService struct {
	analyzer  *analyzer.QualityAnalyzer
	extractor *extractor.FeatureExtractor
	encoder   *encoder.MarkerEncoder
	cache     *cache.AnalysisCache
	recorder  *metrics.Recorder
	events    observer.Subject
	store     storage.Collaborator

	serializePerName bool
	nameMu           sync.Mutex
	nameLocks        map[string]*sync.Mutex
}

// ServiceOption configures a MarkerService.
type ServiceOption func(*markerService)

// WithEventPublisher wires generation lifecycle events to the given subject.
func WithEventPublisher(events observer.Subject) ServiceOption {
	return func(s *markerService) {
		s.events = events
	}
}

// WithStorageCollaborator publishes finished artifacts to external storage
// after encoding. Publish failures fail the generation.
func WithStorageCollaborator(store storage.Collaborator) ServiceOption {
	return func(s *markerService) {
		s.store = store
	}
}

// SerializePerName makes concurrent regenerations of the same marker name
// run one at a time. Off by default; the encoder's rename discipline already
// prevents partial artifacts, this only pins which writer wins.
func SerializePerName() ServiceOption {
	return func(s *markerService) {
		s.serializePerName = true
	}
}

// NewMarkerService assembles the engine pipeline.
func NewMarkerService(
	qualityAnalyzer *analyzer.QualityAnalyzer,
	featureExtractor *extractor.FeatureExtractor,
	markerEncoder *encoder.MarkerEncoder,
	analysisCache *cache.AnalysisCache,
	recorder *metrics.Recorder,
	opts ...ServiceOption,
) MarkerService {
	s := &markerService{
		analyzer:  qualityAnalyzer,
		extractor: featureExtractor,
		encoder:   markerEncoder,
		cache:     analysisCache,
		recorder:  recorder,
		nameLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AnalyzeFile analyzes a source image, serving repeated calls for an
// unchanged file from the cache. The fingerprint covers path, mtime, and
// size, so touching the file invalidates the entry.
func (s *markerService) AnalyzeFile(ctx context.Context, imagePath string) (models.QualityAnalysis, error) {
	src, err := cache.StatSource(imagePath)
	if err != nil {
		return models.QualityAnalysis{}, err
	}

	if analysis, ok := s.cache.Get(src.Fingerprint); ok {
		return analysis, nil
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return models.QualityAnalysis{}, apperrors.NewValidationError(
			fmt.Sprintf("reading image %s", imagePath), err)
	}

	analysis, err := s.analyzer.AnalyzeBytes(data)
	if err != nil {
		return models.QualityAnalysis{}, err
	}

	s.cache.Put(src.Fingerprint, analysis)
	return analysis, nil
}

// Generate runs the full pipeline for one marker: analyze (cached), extract
// features, encode the three artifact files, and optionally publish them to
// the storage collaborator. All-or-nothing: any stage error surfaces and no
// partial artifact remains.
func (s *markerService) Generate(ctx context.Context, imagePath, markerName string, cfg models.GenerationConfig) (models.MarkerArtifact, error) {
	started := time.Now()
	s.emit(ctx, observer.NewEvent(observer.GenerationStarted, markerName, imagePath))

	artifact, err := s.generate(ctx, imagePath, markerName, cfg)
	elapsed := time.Since(started)

	if err != nil {
		ev := observer.NewEvent(observer.GenerationFailed, markerName, imagePath)
		ev.ProcessingTime = elapsed
		ev.ErrorMessage = err.Error()
		s.emit(ctx, ev)
		return models.MarkerArtifact{}, err
	}

	if s.recorder != nil {
		s.recorder.RecordGeneration(elapsed)
	}

	ev := observer.NewEvent(observer.GenerationCompleted, markerName, imagePath)
	ev.ProcessingTime = elapsed
	ev.Success = true
	ev.Metadata = map[string]interface{}{
		"levels": artifact.Levels,
		"width":  artifact.Width,
		"height": artifact.Height,
	}
	s.emit(ctx, ev)

	return artifact, nil
}

func (s *markerService) generate(ctx context.Context, imagePath, markerName string, cfg models.GenerationConfig) (models.MarkerArtifact, error) {
	if err := ctx.Err(); err != nil {
		return models.MarkerArtifact{}, apperrors.NewTimeoutError("generation cancelled", err)
	}

	src, err := cache.StatSource(imagePath)
	if err != nil {
		return models.MarkerArtifact{}, err
	}

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return models.MarkerArtifact{}, apperrors.NewValidationError(
			fmt.Sprintf("reading image %s", imagePath), err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return models.MarkerArtifact{}, apperrors.NewValidationError(
			"image could not be decoded", err)
	}

	analysis, ok := s.cache.Get(src.Fingerprint)
	if !ok {
		analysis, err = s.analyzer.Analyze(img)
		if err != nil {
			return models.MarkerArtifact{}, err
		}
		s.cache.Put(src.Fingerprint, analysis)
	}
	if analysis.QualityClass == models.QualityPoor {
		logger.WithMarker(markerName).WithField("contrast", analysis.Contrast).
			Warn("Generating marker from poor-quality image")
	}

	if err := ctx.Err(); err != nil {
		return models.MarkerArtifact{}, apperrors.NewTimeoutError("generation cancelled", err)
	}

	result, err := s.extractor.Extract(img, cfg)
	if err != nil {
		return models.MarkerArtifact{}, err
	}

	if err := ctx.Err(); err != nil {
		return models.MarkerArtifact{}, apperrors.NewTimeoutError("generation cancelled", err)
	}

	if s.serializePerName {
		lock := s.lockFor(markerName)
		lock.Lock()
		defer lock.Unlock()
	}

	artifact, err := s.encoder.Encode(markerName, result)
	if err != nil {
		return models.MarkerArtifact{}, err
	}

	artifact.MinDpi = cfg.MinDpi
	artifact.MaxDpi = cfg.MaxDpi
	artifact.FeatureDensity = string(cfg.FeatureDensity)
	artifact.SourceFingerprint = src.Fingerprint

	if s.store != nil {
		if err := s.publish(ctx, artifact); err != nil {
			return models.MarkerArtifact{}, err
		}
	}

	return artifact, nil
}

// publish uploads the three artifact files concurrently.
func (s *markerService) publish(ctx context.Context, artifact models.MarkerArtifact) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, path := range []string{artifact.ISetPath, artifact.FSetPath, artifact.FSet3Path} {
		path := path
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			key := filepath.Join(artifact.MarkerName, filepath.Base(path))
			_, err = s.store.Put(gctx, key, data)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return apperrors.NewEncodingError(
			fmt.Sprintf("publishing marker %s to storage", artifact.MarkerName), err)
	}
	return nil
}

func (s *markerService) lockFor(markerName string) *sync.Mutex {
	s.nameMu.Lock()
	defer s.nameMu.Unlock()
	lock, ok := s.nameLocks[markerName]
	if !ok {
		lock = &sync.Mutex{}
		s.nameLocks[markerName] = lock
	}
	return lock
}

func (s *markerService) emit(ctx context.Context, event observer.GenerationEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
