package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// depth tracks the number of tasks currently pending in the queue.
var depth = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "lakesync",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Number of transformation tasks currently pending",
	},
)
