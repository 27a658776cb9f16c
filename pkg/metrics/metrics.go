package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_recommendations_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"},
	)

	ResolverHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_resolver_hits_total",
			Help: "Product resolutions by the strategy tier that produced the URL",
		},
		[]string{"tier"},
	)

	LeadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_leads_total",
			Help: "Lead submissions by outcome",
		},
		[]string{"outcome"},
	)

	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_exports_total",
			Help: "Document exports by outcome",
		},
		[]string{"outcome"},
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_upstream_duration_seconds",
			Help:    "Latency of calls to external collaborators",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
