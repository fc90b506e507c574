package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "matches_total", Help: "Total number of committed pairings"})
	MatchAttemptsTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "match_attempts_total", Help: "Total candidate evaluations"})
	ClaimConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "claim_conflicts_total", Help: "Conditional match writes lost to a concurrent claim"})

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "events_total", Help: "Inbound messaging events handled"},
		[]string{"kind"},
	)
	ActiveConversations = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "carpool", Name: "active_conversations", Help: "Conversations currently holding state"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
