package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(workerTasksTotal) }

var workerTasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_tasks_total",
		Help:      "Background pool tasks by result.",
	},
	[]string{"success"},
)

func IncWorkerTask(success bool) {
	workerTasksTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
