package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheLookups, dbPoolConns) }

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Redis cache lookups by cache name and result (hit, miss, error).",
		},
		[]string{"cache", "result"},
	)

	dbPoolConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool_connections",
			Help:      "Postgres pool connections by state.",
		},
		[]string{"state"},
	)
)

func IncCacheRequest(cache, result string) {
	cacheLookups.WithLabelValues(label(cache), label(result)).Inc()
}

// SetDBPoolStats publishes a pgxpool.Stat sample.
func SetDBPoolStats(total, idle, inUse int32) {
	for state, n := range map[string]int32{"total": total, "idle": idle, "in_use": inUse} {
		dbPoolConns.WithLabelValues(state).Set(float64(n))
	}
}
