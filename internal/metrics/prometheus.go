package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-nft-marker-gen/pkg/models"
)

// PrometheusSink exports recorder snapshots as Prometheus gauges. Gauges are
// used instead of counters because the recorder is resettable.
type PrometheusSink struct {
	registry *prometheus.Registry

	totalGenerated prometheus.Gauge
	totalTimeSec   prometheus.Gauge
	cacheHits      prometheus.Gauge
	cacheMisses    prometheus.Gauge
	avgTimeSec     prometheus.Gauge
	cacheHitRate   prometheus.Gauge
}

// NewPrometheusSink builds a sink with its own registry.
func NewPrometheusSink() *PrometheusSink {
	s := &PrometheusSink{
		registry: prometheus.NewRegistry(),
		totalGenerated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "markers_generated_total",
			Help:      "Markers generated since the last recorder reset.",
		}),
		totalTimeSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "generation_seconds_total",
			Help:      "Cumulative generation time in seconds.",
		}),
		cacheHits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "analysis_cache_hits",
			Help:      "Analysis cache hits since the last recorder reset.",
		}),
		cacheMisses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "analysis_cache_misses",
			Help:      "Analysis cache misses since the last recorder reset.",
		}),
		avgTimeSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "generation_seconds_avg",
			Help:      "Average seconds per generated marker.",
		}),
		cacheHitRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "marker_engine",
			Name:      "analysis_cache_hit_rate",
			Help:      "Analysis cache hit rate in [0,1].",
		}),
	}

	s.registry.MustRegister(
		s.totalGenerated,
		s.totalTimeSec,
		s.cacheHits,
		s.cacheMisses,
		s.avgTimeSec,
		s.cacheHitRate,
	)
	return s
}

// Publish sets every gauge from the snapshot.
func (s *PrometheusSink) Publish(snapshot models.MetricsSnapshot) {
	s.totalGenerated.Set(float64(snapshot.TotalGenerated))
	s.totalTimeSec.Set(snapshot.TotalTime.Seconds())
	s.cacheHits.Set(float64(snapshot.CacheHits))
	s.cacheMisses.Set(float64(snapshot.CacheMisses))
	s.avgTimeSec.Set(snapshot.AvgTimePerMarker.Seconds())
	s.cacheHitRate.Set(snapshot.CacheHitRate)
}

// Handler serves the sink's registry in the Prometheus exposition format.
func (s *PrometheusSink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
