package launch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Launches        *prometheus.CounterVec
	PrepareDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
}

// NewMetrics registers the launch metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Launches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "launcher_launches_total",
				Help: "Total number of launches by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		PrepareDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "launcher_prepare_duration_seconds",
				Help:    "Time spent staging a version before launch",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"provider"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "launcher_launches_in_flight",
				Help: "Number of launches being prepared or running",
			},
		),
	}
}
