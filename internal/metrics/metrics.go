package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "agenda"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard step transitions.",
		},
		[]string{"from", "to"},
	)

	loaderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_loader_errors_total",
			Help:      "Failed catalog and history loads.",
		},
		[]string{"loader"},
	)

	appointmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_created_total",
			Help:      "Appointments stored, by professional.",
		},
		[]string{"professional"},
	)

	submissionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Time spent resolving the profile and inserting the appointment.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, transitions, loaderErrors, appointmentsCreated, submissionDuration)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// Wizard records controller activity.
type Wizard struct{}

func (Wizard) Transition(from, to string) {
	transitions.WithLabelValues(from, to).Inc()
}

func (Wizard) LoaderError(loader string) {
	loaderErrors.WithLabelValues(loader).Inc()
}

func (Wizard) Submission(professional string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		appointmentsCreated.WithLabelValues(professional).Inc()
	}
	submissionDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}
