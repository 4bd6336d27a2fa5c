package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// taskDuration tracks how long a task's extract->chunk->embed->lake-write
// pipeline takes, labeled by outcome.
var taskDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "lakesync",
		Subsystem: "worker",
		Name:      "task_duration_seconds",
		Help:      "Duration of a transformation task, labeled by outcome (completed, failed)",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"outcome"},
)
