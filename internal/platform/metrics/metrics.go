package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-wide Prometheus metrics. Module-specific
// metrics live next to their module; this package covers the HTTP surface
// and user/device registration counts.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	UsersRegistered     prometheus.Counter
	DevicesRegistered   prometheus.Counter
}

// New creates and registers all application-wide Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nearhelp_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_users_registered_total",
			Help: "Total number of users registered",
		}),
		DevicesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nearhelp_devices_registered_total",
			Help: "Total number of devices registered",
		}),
	}
}

// IncrementUsersRegistered increments the users registered counter by 1.
func (m *Metrics) IncrementUsersRegistered() {
	m.UsersRegistered.Inc()
}

// IncrementDevicesRegistered increments the devices registered counter by 1.
func (m *Metrics) IncrementDevicesRegistered() {
	m.DevicesRegistered.Inc()
}
