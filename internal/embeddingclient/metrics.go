package embeddingclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fallbacksTotal counts inputs that were truncated or split because the
// embedding model rejected them as too large.
var fallbacksTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "lakesync",
		Subsystem: "embedding",
		Name:      "fallbacks_total",
		Help:      "Total number of embedding calls that required truncation or split-and-average fallback",
	},
)
