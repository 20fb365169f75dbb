package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the help-request module. Tracks
// request outcomes and the latency of the creation fan-out, which is the
// critical path a requester waits on.
type Metrics struct {
	RequestsCreated      prometheus.Counter
	RequestsMatched      prometheus.Counter
	RequestsFailed       prometheus.Counter
	RequestsCompleted    prometheus.Counter
	VerificationResults  *prometheus.CounterVec
	VerificationTimeouts prometheus.Counter
	SaveConflicts        prometheus.Counter
	CreateDuration       prometheus.Histogram
	CandidatesPerRequest prometheus.Histogram
}

// New creates a new Metrics instance with all help-request metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_help_requests_created_total",
			Help: "Total number of help requests created",
		}),
		RequestsMatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_help_requests_matched_total",
			Help: "Total number of help requests resolved as matched",
		}),
		RequestsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_help_requests_failed_total",
			Help: "Total number of help requests resolved as failed",
		}),
		RequestsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_help_requests_completed_total",
			Help: "Total number of help requests completed by their requester",
		}),
		VerificationResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nearhelp_proximity_verification_results_total",
			Help: "Proximity verification results by outcome",
		}, []string{"outcome"}),
		VerificationTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_proximity_verification_timeouts_total",
			Help: "Total number of verification windows resolved by timeout",
		}),
		SaveConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_help_request_save_conflicts_total",
			Help: "Optimistic-concurrency conflicts retried while saving help requests",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nearhelp_help_request_create_duration_seconds",
			Help:    "Duration of help-request creation including challenge fan-out",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		CandidatesPerRequest: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nearhelp_help_request_candidates",
			Help:    "Number of nearby candidates challenged per help request",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
		}),
	}
}

// IncrementRequestsCreated records a successfully created help request.
func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

// ObserveVerificationResult counts one supporter's challenge outcome.
func (m *Metrics) ObserveVerificationResult(succeeded bool) {
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	m.VerificationResults.WithLabelValues(outcome).Inc()
}

// ObserveResolution records how a verification window ended.
func (m *Metrics) ObserveResolution(matched bool) {
	if matched {
		m.RequestsMatched.Inc()
	} else {
		m.RequestsFailed.Inc()
	}
}

// ObserveCreate records the duration of a Create operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
