package transport

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-nft-marker-gen/internal/batch"
	"go-nft-marker-gen/internal/cache"
	"go-nft-marker-gen/internal/config"
	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/gc"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/internal/metrics"
	"go-nft-marker-gen/internal/preset"
	"go-nft-marker-gen/internal/service"
	"go-nft-marker-gen/pkg/models"
)

type AnalysisRequest struct {
	ImagePath string `json:"image_path" binding:"required"`
}

type GenerateRequest struct {
	ImagePath  string                   `json:"image_path" binding:"required"`
	MarkerName string                   `json:"marker_name" binding:"required"`
	Preset     string                   `json:"preset,omitempty"`
	Config     *models.GenerationConfig `json:"config,omitempty"`
}

type BatchRequest struct {
	Jobs       []batch.Job              `json:"jobs" binding:"required"`
	Preset     string                   `json:"preset,omitempty"`
	Config     *models.GenerationConfig `json:"config,omitempty"`
	MaxWorkers int                      `json:"max_workers"`
}

type BatchItemResult struct {
	Artifact *models.MarkerArtifact `json:"artifact,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

type BatchResponse struct {
	Results map[string]BatchItemResult `json:"results"`
	Stats   batch.Stats                `json:"stats"`
}

type PresetRequest struct {
	Config models.GenerationConfig `json:"config" binding:"required"`
}

type GCRequest struct {
	DryRun bool `json:"dry_run"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Deps bundles everything the HTTP surface exposes.
type Deps struct {
	Service     service.MarkerService
	Coordinator *batch.Coordinator
	Presets     *preset.Store
	Collector   *gc.Collector
	Cache       *cache.AnalysisCache
	Recorder    *metrics.Recorder
	Sink        *metrics.PrometheusSink
	Config      *config.Config
}

func NewHandler(deps Deps) http.Handler {
	r := gin.Default()

	r.GET("/health", healthCheck)
	r.POST("/analyze", analyzeImage(deps))
	r.POST("/markers", generateMarker(deps))
	r.POST("/markers/batch", generateBatch(deps))

	r.GET("/presets", listPresets(deps))
	r.GET("/presets/:name", getPreset(deps))
	r.PUT("/presets/:name", savePreset(deps))
	r.DELETE("/presets/:name", deletePreset(deps))

	r.POST("/gc", runGC(deps))
	r.POST("/cache/clear", clearCache(deps))

	r.GET("/metrics", metricsSnapshot(deps))
	if deps.Sink != nil {
		r.GET("/metrics/prometheus", gin.WrapH(deps.Sink.Handler()))
	}

	return r
}

func analyzeImage(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c, deps.Config)
		defer cancel()

		var req AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		analysis, err := deps.Service.AnalyzeFile(ctx, req.ImagePath)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "analysis failed", err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

func generateMarker(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c, deps.Config)
		defer cancel()

		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		cfg, err := resolveConfig(deps, req.Preset, req.Config)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid generation config", err)
			return
		}

		artifact, err := deps.Service.Generate(ctx, req.ImagePath, req.MarkerName, cfg)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "marker generation failed", err)
			return
		}

		logger.WithMarker(req.MarkerName).WithFields(logrus.Fields{
			"image_path": req.ImagePath,
			"levels":     artifact.Levels,
		}).Info("Marker generated")
		c.JSON(http.StatusCreated, artifact)
	}
}

func generateBatch(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		cfg, err := resolveConfig(deps, req.Preset, req.Config)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid generation config", err)
			return
		}

		workers := req.MaxWorkers
		if workers == 0 {
			workers = deps.Config.MaxBatchWorkers
		}

		results, stats, err := deps.Coordinator.Run(c.Request.Context(), req.Jobs, cfg, workers)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "batch run failed", err)
			return
		}

		resp := BatchResponse{Results: make(map[string]BatchItemResult, len(results)), Stats: stats}
		for path, res := range results {
			item := BatchItemResult{Artifact: res.Artifact}
			if res.Err != nil {
				item.Error = res.Err.Error()
			}
			resp.Results[path] = item
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listPresets(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		presets, err := deps.Presets.List()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "listing presets failed", err)
			return
		}
		if presets == nil {
			presets = []preset.Preset{}
		}
		c.JSON(http.StatusOK, presets)
	}
}

func getPreset(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := deps.Presets.Get(c.Param("name"))
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "preset lookup failed", err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

func savePreset(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req PresetRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		if err := deps.Presets.Save(c.Param("name"), req.Config); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "saving preset failed", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": c.Param("name")})
	}
}

func deletePreset(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Presets.Delete(c.Param("name")); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "deleting preset failed", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func runGC(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req GCRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		report, err := deps.Collector.Run(c.Request.Context(), req.DryRun)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "garbage collection failed", err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func clearCache(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		all := c.Query("all") == "true"
		removed := deps.Cache.Clear(all)
		c.JSON(http.StatusOK, gin.H{"removed": removed, "all": all})
	}
}

func metricsSnapshot(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := deps.Recorder.Snapshot()
		if deps.Sink != nil {
			deps.Sink.Publish(snapshot)
		}
		c.JSON(http.StatusOK, snapshot)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// resolveConfig picks the effective generation config: explicit config wins,
// then a named preset, then the defaults.
func resolveConfig(deps Deps, presetName string, explicit *models.GenerationConfig) (models.GenerationConfig, error) {
	if explicit != nil {
		if err := explicit.Validate(); err != nil {
			return models.GenerationConfig{}, apperrors.NewConfigError("invalid config", err)
		}
		return *explicit, nil
	}
	if presetName != "" {
		p, err := deps.Presets.Get(presetName)
		if err != nil {
			return models.GenerationConfig{}, err
		}
		return p.Config, nil
	}
	return models.DefaultGenerationConfig(), nil
}

func requestContext(c *gin.Context, cfg *config.Config) (context.Context, context.CancelFunc) {
	timeout := 60 * time.Second
	if cfg != nil && cfg.RequestTimeout > 0 {
		timeout = cfg.RequestTimeout
	}
	return context.WithTimeout(c.Request.Context(), timeout)
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message + ": " + err.Error(),
	})
}
