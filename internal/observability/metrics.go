package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the scan.
type Metrics struct {
	RecordsScanned      prometheus.Counter
	RowsSkipped         prometheus.Counter
	FilesProcessed      prometheus.Counter
	FileErrors          prometheus.Counter
	AggregatesPublished prometheus.Counter
	ScanRunning         prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all scan metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RecordsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occ_scan",
			Name:      "records_scanned_total",
			Help:      "Total occurrence records read from all sources.",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occ_scan",
			Name:      "rows_skipped_total",
			Help:      "Malformed rows skipped during ingestion.",
		}),
		FilesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occ_scan",
			Name:      "files_processed_total",
			Help:      "Source files processed to completion.",
		}),
		FileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occ_scan",
			Name:      "file_errors_total",
			Help:      "Source files abandoned due to a fatal per-file error.",
		}),
		AggregatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "occ_scan",
			Name:      "aggregates_published_total",
			Help:      "Species aggregates published to the Kafka sink.",
		}),
		ScanRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "occ_scan",
			Name:      "running",
			Help:      "1 while the scan is active, 0 otherwise.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "occ_scan",
			Name:      "batch_size",
			Help:      "Number of records per extracted batch.",
			Buckets:   []float64{10, 50, 100, 500, 1000, 2500, 5000, 10000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "occ_scan",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of one extract-classify-aggregate cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
	}

	prometheus.MustRegister(
		m.RecordsScanned,
		m.RowsSkipped,
		m.FilesProcessed,
		m.FileErrors,
		m.AggregatesPublished,
		m.ScanRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RecordsScanned:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "occ_scan", Name: "records_scanned_total"}),
		RowsSkipped:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "occ_scan", Name: "rows_skipped_total"}),
		FilesProcessed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "occ_scan", Name: "files_processed_total"}),
		FileErrors:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "occ_scan", Name: "file_errors_total"}),
		AggregatesPublished:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "occ_scan", Name: "aggregates_published_total"}),
		ScanRunning:             prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "occ_scan", Name: "running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "occ_scan", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "occ_scan", Name: "batch_processing_duration_seconds"}),
	}
}
