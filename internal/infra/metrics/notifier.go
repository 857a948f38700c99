package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		notifierCyclesTotal,
		notifierSubscribersTotal,
		notifierCycleSeconds,
		notifierRestSeconds,
	)
}

var (
	notifierCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_cycles_total",
			Help:      "Completed notification cycles by status.",
		},
		[]string{"status"}, // ok, error
	)

	notifierSubscribersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifier_subscribers_total",
			Help:      "Per-subscriber outcomes of notification cycles.",
		},
		[]string{"outcome"}, // notified, unchanged, skipped, failed
	)

	notifierCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notifier_cycle_duration_seconds",
			Help:      "Wall time of one notification cycle.",
			Buckets:   []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 21600, 86400},
		},
	)

	notifierRestSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifier_rest_seconds",
			Help:      "Rest scheduled after the last cycle.",
		},
	)
)

func IncNotifierCycle(status string) {
	notifierCyclesTotal.WithLabelValues(label(status)).Inc()
}

func AddNotifierOutcomes(notified, unchanged, skipped, failed int) {
	notifierSubscribersTotal.WithLabelValues("notified").Add(float64(notified))
	notifierSubscribersTotal.WithLabelValues("unchanged").Add(float64(unchanged))
	notifierSubscribersTotal.WithLabelValues("skipped").Add(float64(skipped))
	notifierSubscribersTotal.WithLabelValues("failed").Add(float64(failed))
}

func ObserveNotifierCycle(elapsed, rest time.Duration) {
	notifierCycleSeconds.Observe(elapsed.Seconds())
	notifierRestSeconds.Set(rest.Seconds())
}
