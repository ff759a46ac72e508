package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-path and upstream counters, exposed on /metrics.
var (
	RewriteTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhub_slug_rewrites_total",
		Help: "Inbound path rewrite outcomes.",
	}, []string{"result"}) // "rewritten", "passthrough", "skipped"

	SlugRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhub_slug_refresh_total",
		Help: "Slug cache refresh outcomes.",
	}, []string{"result"}) // "ok", "partial", "failed"

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dhub_upstream_requests_total",
		Help: "Upstream API call outcomes by error kind (or ok).",
	}, []string{"kind"})

	UpstreamRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dhub_upstream_retries_total",
		Help: "Number of upstream attempts that were retried.",
	})

	AbandonedFlowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dhub_abandoned_flows_total",
		Help: "Booking flows with a pending booking that never confirmed.",
	})
)
