// Package metrics owns the Prometheus collectors deduper records while it
// scans, plus the textfile export used by the CLI.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Cache metrics
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheErrors *prometheus.CounterVec

	// Hashing metrics
	FilesHashed  *prometheus.CounterVec
	HashDuration *prometheus.HistogramVec

	// Grouping metrics
	DuplicateGroups prometheus.Gauge
	DuplicateFiles  prometheus.Gauge

	// File operation metrics
	FileOps *prometheus.CounterVec

	MetadataFailures prometheus.Counter
}

// New creates collectors registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deduper_cache_hits_total",
				Help: "Cache lookups answered from the index",
			},
			[]string{"kind"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deduper_cache_misses_total",
				Help: "Cache lookups that required recomputation",
			},
			[]string{"kind"},
		),
		CacheErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deduper_cache_errors_total",
				Help: "Cache store errors treated as misses",
			},
			[]string{"op"},
		),
		FilesHashed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deduper_files_hashed_total",
				Help: "Files hashed by kind",
			},
			[]string{"kind"},
		),
		HashDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "deduper_hash_duration_seconds",
				Help:    "Time spent computing a single hash",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		DuplicateGroups: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deduper_duplicate_groups",
			Help: "Duplicate groups found by the last scan",
		}),
		DuplicateFiles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "deduper_duplicate_files",
			Help: "Files that duplicate an earlier file in the last scan",
		}),
		FileOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "deduper_file_operations_total",
				Help: "Move, rename and delete operations by result",
			},
			[]string{"op", "result"},
		),
		MetadataFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "deduper_metadata_failures_total",
			Help: "Files whose metadata extraction failed",
		}),
	}
}

// CacheLookup records a hit or miss for kind.
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(kind).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(kind).Inc()
}

// CacheError records a store error for op.
func (m *Metrics) CacheError(op string) {
	if m == nil {
		return
	}
	m.CacheErrors.WithLabelValues(op).Inc()
}

// Hashed records one computed hash and its duration.
func (m *Metrics) Hashed(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.FilesHashed.WithLabelValues(kind).Inc()
	m.HashDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Groups records the outcome of a grouping pass.
func (m *Metrics) Groups(groups, duplicates int) {
	if m == nil {
		return
	}
	m.DuplicateGroups.Set(float64(groups))
	m.DuplicateFiles.Set(float64(duplicates))
}

// FileOp records one file operation result.
func (m *Metrics) FileOp(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.FileOps.WithLabelValues(op, result).Inc()
}

// MetadataFailed records one failed extraction.
func (m *Metrics) MetadataFailed() {
	if m == nil {
		return
	}
	m.MetadataFailures.Inc()
}

// Gatherer exposes the private registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// WriteTextfile writes the current values in Prometheus text format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
