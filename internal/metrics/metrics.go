package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// SourceLive labels loads served by the survival backend.
	SourceLive = "live"
	// SourceSynthetic labels loads that fell back to a generated curve.
	SourceSynthetic = "synthetic"
)

// Fallback reasons.
const (
	ReasonUnhealthy     = "unhealthy"
	ReasonTransport     = "transport"
	ReasonDataIntegrity = "data_integrity"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwe_km",
			Name:      "loads_total",
			Help:      "Dataset loads applied to the dashboard, partitioned by data source.",
		},
		[]string{"source"},
	)

	loadDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rwe_km",
			Name:      "load_seconds",
			Help:      "Time from load request to applied dataset in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwe_km",
			Name:      "fallbacks_total",
			Help:      "Synthetic fallbacks, partitioned by reason.",
		},
		[]string{"reason"},
	)

	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rwe_km",
			Name:      "resolutions_total",
			Help:      "Persona key resolutions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	staleResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rwe_km",
			Name:      "stale_responses_total",
			Help:      "Backend responses discarded because a newer request superseded them.",
		},
	)
)

// Register attaches rwe-km collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		loadsTotal,
		loadDurationSeconds,
		fallbacksTotal,
		resolutionsTotal,
		staleResponsesTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveLoad records an applied load and its duration.
func ObserveLoad(duration time.Duration, source string) {
	label := source
	if label != SourceSynthetic {
		label = SourceLive
	}
	loadsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	loadDurationSeconds.Observe(duration.Seconds())
}

// ObserveFallback counts a switch to synthetic data.
func ObserveFallback(reason string) {
	fallbacksTotal.WithLabelValues(reason).Inc()
}

// ObserveResolution counts a persona resolution outcome.
func ObserveResolution(outcome string) {
	resolutionsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStale counts a discarded late response.
func ObserveStale() {
	staleResponsesTotal.Inc()
}
