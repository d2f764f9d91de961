package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/pkg/models"
)

// MaxWorkers caps the worker pool size regardless of what the caller asks
// for. Feature extraction is CPU-bound; more workers than this just thrash.
const MaxWorkers = 8

// Job is one generation request inside a batch.
type Job struct {
	ImagePath  string `json:"image_path"`
	MarkerName string `json:"marker_name"`
}

// Result is the outcome of one job. Exactly one of Artifact or Err is set.
type Result struct {
	Artifact *models.MarkerArtifact `json:"artifact,omitempty"`
	Err      error                  `json:"-"`
}

// Stats aggregates a finished batch.
type Stats struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	TotalTime  time.Duration `json:"total_time"`
}

// GenerateFunc produces a marker artifact from a source image. The
// coordinator stays decoupled from the service that implements it.
type GenerateFunc func(ctx context.Context, imagePath, markerName string, cfg models.GenerationConfig) (models.MarkerArtifact, error)

// Coordinator fans generation jobs out across a fixed-size worker pool. The
// queue is bounded to exactly the input list; nothing is enqueued after Run
// starts. One job's failure never cancels or blocks the others.
type Coordinator struct {
	generate   GenerateFunc
	jobTimeout time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithJobTimeout sets a per-job deadline. A job exceeding it is marked
// failed with a timeout error; other jobs are unaffected. Zero disables the
// deadline.
func WithJobTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.jobTimeout = d
	}
}

// NewCoordinator creates a coordinator around the given generation function.
func NewCoordinator(generate GenerateFunc, opts ...Option) *Coordinator {
	c := &Coordinator{generate: generate}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes all jobs with at most maxWorkers running concurrently and
// returns per-job results keyed by image path, so callers can correlate
// outcomes regardless of completion order. Duplicate image paths are
// rejected up front since they could not be told apart in the result map.
// Cancelling ctx stops dispatch of not-yet-started jobs; in-flight jobs run
// to completion or individual timeout.
func (c *Coordinator) Run(ctx context.Context, jobs []Job, cfg models.GenerationConfig, maxWorkers int) (map[string]Result, Stats, error) {
	if len(jobs) == 0 {
		return map[string]Result{}, Stats{}, nil
	}
	if maxWorkers < 1 || maxWorkers > MaxWorkers {
		return nil, Stats{}, apperrors.NewValidationError(
			fmt.Sprintf("max workers must be in [1,%d], got %d", MaxWorkers, maxWorkers), nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, Stats{}, apperrors.NewConfigError("invalid batch config", err)
	}

	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if _, dup := seen[j.ImagePath]; dup {
			return nil, Stats{}, apperrors.NewValidationError(
				fmt.Sprintf("duplicate image path in batch: %s", j.ImagePath), nil)
		}
		seen[j.ImagePath] = struct{}{}
	}
	if maxWorkers > len(jobs) {
		maxWorkers = len(jobs)
	}

	runID := uuid.New().String()
	log := logger.WithFields(map[string]interface{}{
		"run_id":  runID,
		"jobs":    len(jobs),
		"workers": maxWorkers,
	})
	log.Info("Starting batch run")

	queue := make(chan Job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(jobs))
		wg      sync.WaitGroup
	)
	started := time.Now()

	for i := 0; i < maxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				var res Result
				if err := ctx.Err(); err != nil {
					res = Result{Err: apperrors.NewTimeoutError(
						fmt.Sprintf("batch cancelled before job %s was dispatched", job.ImagePath), err)}
				} else {
					res = c.runJob(ctx, job, cfg)
				}
				mu.Lock()
				results[job.ImagePath] = res
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stats := Stats{TotalTime: time.Since(started)}
	for _, r := range results {
		if r.Err != nil {
			stats.Failed++
		} else {
			stats.Successful++
		}
	}

	log.WithFields(map[string]interface{}{
		"successful": stats.Successful,
		"failed":     stats.Failed,
		"total_time": stats.TotalTime.String(),
	}).Info("Batch run finished")

	return results, stats, nil
}

func (c *Coordinator) runJob(ctx context.Context, job Job, cfg models.GenerationConfig) Result {
	jobCtx := ctx
	if c.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, c.jobTimeout)
		defer cancel()
	}

	artifact, err := c.generate(jobCtx, job.ImagePath, job.MarkerName, cfg)
	if err != nil {
		if jobCtx.Err() == context.DeadlineExceeded {
			err = apperrors.NewTimeoutError(
				fmt.Sprintf("job %s exceeded timeout %s", job.ImagePath, c.jobTimeout), err)
		}
		logger.WithError(err).WithField("image_path", job.ImagePath).Warn("Batch job failed")
		return Result{Err: err}
	}
	return Result{Artifact: &artifact}
}
