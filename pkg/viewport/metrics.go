package viewport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_scroll_triggers_total",
		Help: "Total number of load-more triggers fired by the scroll scheduler",
	}, []string{"reason"}) // "scroll", "mount", "ready", "cooldown", "intersect"

	cooldownSkipsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_scroll_cooldown_skips_total",
		Help: "Total number of trigger checks skipped because the minimum trigger interval had not elapsed",
	})
)
