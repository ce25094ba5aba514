package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Stream metrics
	CommandsProcessed *prometheus.CounterVec
	CommandsRejected  *prometheus.CounterVec
	RecordsMalformed  prometheus.Counter
	EventsEmitted     *prometheus.CounterVec
	CommandAmount     prometheus.Histogram
	RunDuration       prometheus.Histogram

	// Projection metrics
	AccountsProjected prometheus.Gauge
	AccountsLocked    prometheus.Counter
	LedgerEntries     prometheus.Gauge
	LedgerEvictions   prometheus.Counter
	DisputesOpened    prometheus.Counter
	DisputesResolved  prometheus.Counter
	Chargebacks       prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Event archive metrics
	ArchiveAppends *prometheus.CounterVec
	ArchiveLatency prometheus.Histogram

	// Snapshot mirror metrics
	MirrorWrites  *prometheus.CounterVec
	MirrorRetries prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Stream metrics
		CommandsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_commands_processed_total",
				Help: "Total number of commands consumed from the stream",
			},
			[]string{"kind"},
		),
		CommandsRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_commands_rejected_total",
				Help: "Total number of rejected commands by reason",
			},
			[]string{"reason"},
		),
		RecordsMalformed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_records_malformed_total",
			Help: "Total number of malformed source records skipped",
		}),
		EventsEmitted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_events_emitted_total",
				Help: "Total number of events emitted by kind",
			},
			[]string{"kind"},
		),
		CommandAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goaccounts_command_amount",
			Help:    "Monetary command amounts",
			Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goaccounts_run_duration_seconds",
			Help:    "Duration of full stream runs",
			Buckets: prometheus.DefBuckets,
		}),

		// Projection metrics
		AccountsProjected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goaccounts_accounts_projected",
			Help: "Current number of projected accounts",
		}),
		AccountsLocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_accounts_locked_total",
			Help: "Total number of accounts locked by chargebacks",
		}),
		LedgerEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goaccounts_ledger_entries",
			Help: "Current number of live transaction ledger entries",
		}),
		LedgerEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_ledger_evictions_total",
			Help: "Total number of ledger entries evicted",
		}),
		DisputesOpened: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_disputes_opened_total",
			Help: "Total number of disputes opened",
		}),
		DisputesResolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_disputes_resolved_total",
			Help: "Total number of disputes resolved",
		}),
		Chargebacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_chargebacks_total",
			Help: "Total number of chargebacks applied",
		}),

		// API metrics
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goaccounts_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "goaccounts_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Event archive metrics
		ArchiveAppends: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_archive_appends_total",
				Help: "Total events appended to the archive by status",
			},
			[]string{"status"},
		),
		ArchiveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "goaccounts_archive_append_duration_seconds",
			Help:    "Event archive append duration",
			Buckets: prometheus.DefBuckets,
		}),

		// Snapshot mirror metrics
		MirrorWrites: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goaccounts_mirror_writes_total",
				Help: "Total snapshot mirror writes by status",
			},
			[]string{"status"},
		),
		MirrorRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "goaccounts_mirror_retries_total",
			Help: "Total snapshot mirror retry attempts",
		}),
	}
}
