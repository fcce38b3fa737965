package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the indexer's Prometheus metrics.
type Metrics struct {
	// --- Blocks ---
	BlocksProcessed     *prometheus.CounterVec
	BlockDuration       prometheus.Histogram
	LastProcessedHeight prometheus.Gauge
	SequenceGaps        prometheus.Counter
	DuplicateBlocks     prometheus.Counter

	// --- Events ---
	EventsProcessed    *prometheus.CounterVec
	EventsSkipped      *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	HandlerDuration    *prometheus.HistogramVec
	HandlerErrors      *prometheus.CounterVec

	// --- Publishing ---
	MessagesPublished *prometheus.CounterVec
	PublishErrors     prometheus.Counter

	// --- Snapshot ---
	SnapshotRefreshes *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on reg. Tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	handlerBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	}

	return &Metrics{
		BlocksProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_blocks_processed_total",
			Help: "Blocks handled, by outcome (committed/failed/duplicate)",
		}, []string{"outcome"}),

		BlockDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fillindexer_block_duration_seconds",
			Help:    "Decode to commit time of one block",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		LastProcessedHeight: f.NewGauge(prometheus.GaugeOpts{
			Name: "fillindexer_last_processed_height",
			Help: "Height of the last committed block",
		}),

		SequenceGaps: f.NewCounter(prometheus.CounterOpts{
			Name: "fillindexer_sequence_gaps_total",
			Help: "Blocks rejected because an earlier height is missing",
		}),

		DuplicateBlocks: f.NewCounter(prometheus.CounterOpts{
			Name: "fillindexer_duplicate_blocks_total",
			Help: "Redelivered blocks skipped",
		}),

		EventsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_events_processed_total",
			Help: "Events validated and handed to handlers",
		}, []string{"family"}),

		EventsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_events_skipped_total",
			Help: "Events that could not be decoded",
		}, []string{"subtype"}),

		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_validation_failures_total",
			Help: "Events rejected by validation",
		}, []string{"family"}),

		HandlerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fillindexer_handler_duration_seconds",
			Help:    "Time spent in one handler invocation",
			Buckets: handlerBuckets,
		}, []string{"handler"}),

		HandlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_handler_errors_total",
			Help: "Handler invocations that failed",
		}, []string{"handler"}),

		MessagesPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_messages_published_total",
			Help: "Messages handed to the bus",
		}, []string{"topic"}),

		PublishErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "fillindexer_publish_errors_total",
			Help: "Committed blocks whose messages failed to publish",
		}),

		SnapshotRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fillindexer_snapshot_refreshes_total",
			Help: "Market snapshot reloads, by outcome",
		}, []string{"outcome"}),
	}
}
