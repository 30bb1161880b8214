// Package metrics exposes Prometheus collectors for source ingestion.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestTotal counts loads by source type and outcome.
	IngestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runtv_ingest_total",
		Help: "Total number of source loads by source type and outcome",
	}, []string{"source_type", "outcome"})

	// IngestDuration observes how long the fetching phase of a load took.
	IngestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "runtv_ingest_duration_seconds",
		Help:    "Duration of source loads in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
	}, []string{"source_type"})

	// M3USkippedRecords counts malformed playlist records that were dropped.
	M3USkippedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "runtv_m3u_skipped_records_total",
		Help: "Total number of malformed M3U records skipped while parsing",
	})

	// ProbeTotal counts reachability probes by resulting status.
	ProbeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "runtv_probe_total",
		Help: "Total number of source reachability probes by status",
	}, []string{"status"})

	// SourcesStored tracks the number of registered sources.
	SourcesStored = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "runtv_sources",
		Help: "Number of registered sources",
	})
)

// RecordIngest records one finished load.
func RecordIngest(sourceType, outcome string, d time.Duration) {
	IngestTotal.WithLabelValues(sourceType, outcome).Inc()
	IngestDuration.WithLabelValues(sourceType).Observe(d.Seconds())
}

// RecordM3USkipped adds n skipped records.
func RecordM3USkipped(n int) {
	if n > 0 {
		M3USkippedRecords.Add(float64(n))
	}
}

// RecordProbe increments the probe counter for status.
func RecordProbe(status string) {
	ProbeTotal.WithLabelValues(status).Inc()
}

// SetSourcesStored sets the registered source gauge.
func SetSourcesStored(n int) {
	SourcesStored.Set(float64(n))
}
