package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics структура для метрик Prometheus
type Metrics struct {
	UpdatesTotal         *prometheus.CounterVec
	UpdateProcessingTime prometheus.Histogram
	ErrorsTotal          prometheus.Counter
	RateLimited          prometheus.Counter
	ExportsTotal         prometheus.Counter
}

// NewMetrics registers the bot collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "bot",
			Name:      "updates_total",
			Help:      "Telegram updates received, by kind",
		}, []string{"kind"}),

		UpdateProcessingTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agenda",
			Subsystem: "bot",
			Name:      "update_processing_seconds",
			Help:      "Time spent processing updates",
			Buckets:   prometheus.DefBuckets,
		}),

		ErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "bot",
			Name:      "panics_total",
			Help:      "Update handlers that panicked",
		}),

		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "bot",
			Name:      "rate_limited_total",
			Help:      "Updates dropped by the per-user rate limit",
		}),

		ExportsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "bot",
			Name:      "exports_total",
			Help:      "Booking spreadsheets sent",
		}),
	}
}
