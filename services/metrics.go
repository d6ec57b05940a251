package services

import "github.com/prometheus/client_golang/prometheus"

var (
	discoveryRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discovery_runs_total",
			Help: "Total number of discovery runs by terminal status.",
		},
		[]string{"status"},
	)
	sourceQueriesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_queries_total",
			Help: "Total number of source adapter queries by outcome.",
		},
		[]string{"source", "outcome"},
	)
	papersCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papers_created_total",
			Help: "Total number of new papers added to the database.",
		},
	)
	matchesUpsertedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_upserted_total",
			Help: "Total number of question matches written or refreshed.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		discoveryRunsCounter,
		sourceQueriesCounter,
		papersCreatedCounter,
		matchesUpsertedCounter,
	)
}
