package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	debounceSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_debounce_superseded_total",
		Help: "Total number of debounced calls replaced by a later call before firing",
	})

	throttleDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_throttle_dropped_total",
		Help: "Total number of throttled calls dropped inside the suppression window",
	})
)
