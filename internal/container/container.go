package container

import (
	"fmt"
	"net/http"

	"go-nft-marker-gen/internal/analyzer"
	"go-nft-marker-gen/internal/batch"
	"go-nft-marker-gen/internal/cache"
	"go-nft-marker-gen/internal/config"
	"go-nft-marker-gen/internal/encoder"
	"go-nft-marker-gen/internal/extractor"
	"go-nft-marker-gen/internal/gc"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/internal/observer"
	"go-nft-marker-gen/internal/preset"
	"go-nft-marker-gen/internal/repository"
	"go-nft-marker-gen/internal/service"
	"go-nft-marker-gen/internal/storage"
	"go-nft-marker-gen/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config   *config.Config
	presets  *preset.Store
	recorder *metrics.Recorder
	handler  http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	recorder := metrics.NewRecorder()
	sink := metrics.NewPrometheusSink()

	analysisCache, err := cache.NewAnalysisCache(cfg.CacheTTL, cfg.CacheDir, recorder)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}

	presets, err := preset.Open(cfg.PresetDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open preset store: %w", err)
	}

	store, err := storage.NewCollaborator(cfg)
	if err != nil {
		presets.Close()
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))

	markerService := service.NewMarkerService(
		analyzer.NewQualityAnalyzer(),
		extractor.NewFeatureExtractor(),
		encoder.NewMarkerEncoder(cfg.MarkersRoot),
		analysisCache,
		recorder,
		service.WithEventPublisher(events),
		service.WithStorageCollaborator(store),
	)

	coordinator := batch.NewCoordinator(markerService.Generate,
		batch.WithJobTimeout(cfg.JobTimeout))

	var contentRepo repository.ContentRepository
	if cfg.ContentRegistryURL != "" {
		contentRepo = repository.NewHTTPContentRepository(cfg.ContentRegistryURL)
	} else {
		contentRepo = repository.NewStaticContentRepository()
	}
	collector := gc.NewCollector(cfg.MarkersRoot, contentRepo)

	handler := transport.NewHandler(transport.Deps{
		Service:     markerService,
		Coordinator: coordinator,
		Presets:     presets,
		Collector:   collector,
		Cache:       analysisCache,
		Recorder:    recorder,
		Sink:        sink,
		Config:      cfg,
	})

	return &Container{
		config:   cfg,
		presets:  presets,
		recorder: recorder,
		handler:  handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases held resources.
func (c *Container) Close() error {
	return c.presets.Close()
}
