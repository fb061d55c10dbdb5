package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Critical-section engine metrics
	CSEConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_cse_conflicts_total",
			Help: "Total number of conditional write conflicts",
		},
	)

	CSERetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_cse_retries_total",
			Help: "Total number of critical-section retry attempts after a conflict",
		},
	)

	// Deposit pipeline metrics
	DepositsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_deposits_total",
			Help: "Total number of deposits reaching a status, by status",
		},
		[]string{"status"},
	)

	SubmissionsAggregated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_submissions_aggregated_total",
			Help: "Total number of submissions reaching a terminal aggregated status",
		},
		[]string{"status"},
	)

	StatusRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_status_refreshes_total",
			Help: "Total number of status-reference refreshes by outcome",
		},
		[]string{"outcome"},
	)

	// Worker pool metrics
	PoolQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_pool_queue_depth",
			Help: "Current number of deposit tasks waiting in the pool queue",
		},
	)

	PoolRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_pool_rejections_total",
			Help: "Total number of deposit tasks rejected because the queue was full",
		},
	)

	TasksExecutedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_tasks_executed_total",
			Help: "Total number of deposit tasks executed, by result",
		},
		[]string{"result"},
	)

	// Event ingress metrics
	EventsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_events_received_total",
			Help: "Total number of events received, by entity type",
		},
		[]string{"entity_type"},
	)

	EventsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_events_dropped_total",
			Help: "Total number of events dropped, by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		CSEConflictsTotal,
		CSERetriesTotal,
		DepositsTotal,
		SubmissionsAggregated,
		StatusRefreshesTotal,
		PoolQueueDepth,
		PoolRejectionsTotal,
		TasksExecutedTotal,
		EventsReceivedTotal,
		EventsDroppedTotal,
	)
}

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
