package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Every series of the bot is prefixed with this namespace.
const namespace = "unfollower_bot"

var (
	registerOnce sync.Once
	pending      []prometheus.Collector

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Constant 1, labeled with the running version and commit.",
		},
		[]string{"version", "commit"},
	)
)

func init() { register(buildInfo) }

// register queues collectors declared by the files of this package.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister adds every queued collector to reg, or to the default
// registry served by promhttp when reg is nil. Later calls are no-ops.
func MustRegister(reg ...prometheus.Registerer) {
	target := prometheus.DefaultRegisterer
	if len(reg) > 0 && reg[0] != nil {
		target = reg[0]
	}
	registerOnce.Do(func() { target.MustRegister(pending...) })
}

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func label(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
