// Package metrics provides internal Prometheus collectors for the engine.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the engine's Prometheus instruments.
type Collector struct {
	generatorCalls    *prometheus.CounterVec
	generatorDuration *prometheus.HistogramVec

	roundsTotal     *prometheus.CounterVec
	roundDuration   prometheus.Histogram
	swarmTestsTotal *prometheus.CounterVec
	swarmDuration   prometheus.Histogram

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	logger *zap.Logger
}

// NewCollector registers the engine instruments under the given namespace
// on the default registry. Namespaces must be unique per process.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.generatorCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_calls_total",
			Help:      "Total generator calls by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)
	c.generatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generator_call_duration_seconds",
			Help:      "Generator call duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"mode"},
	)
	c.roundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_rounds_total",
			Help:      "Conversation turns executed, by termination state",
		},
		[]string{"termination"},
	)
	c.roundDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "conversation_duration_seconds",
			Help:      "Full conversation round duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	c.swarmTestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swarm_tests_total",
			Help:      "Swarm tester invocations by outcome",
		},
		[]string{"outcome"},
	)
	c.swarmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "swarm_duration_seconds",
			Help:      "Full swarm run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
	c.cacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_cache_hits_total",
			Help:      "Generation cache hits",
		},
	)
	c.cacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_cache_misses_total",
			Help:      "Generation cache misses",
		},
	)

	return c
}

// RecordGeneratorCall records one generator invocation.
func (c *Collector) RecordGeneratorCall(mode string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.generatorCalls.WithLabelValues(mode, outcome).Inc()
	c.generatorDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordConversation records a finished round with its termination state
// (max_rounds, end_marker, no_agent).
func (c *Collector) RecordConversation(turns int, termination string, duration time.Duration) {
	c.roundsTotal.WithLabelValues(termination).Add(float64(turns))
	c.roundDuration.Observe(duration.Seconds())
}

// RecordSwarm records a finished swarm run.
func (c *Collector) RecordSwarm(succeeded, failed int, duration time.Duration) {
	c.swarmTestsTotal.WithLabelValues("success").Add(float64(succeeded))
	c.swarmTestsTotal.WithLabelValues("failure").Add(float64(failed))
	c.swarmDuration.Observe(duration.Seconds())
}

// CacheHit increments the cache hit counter.
func (c *Collector) CacheHit() { c.cacheHits.Inc() }

// CacheMiss increments the cache miss counter.
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }
