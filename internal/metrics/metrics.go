package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission metrics
var (
	// SubmissionsTotal counts accepted submissions by form and computed sentiment
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Accepted feedback submissions by form and sentiment",
		},
		[]string{"form", "sentiment"},
	)

	// ValidationFailuresTotal counts rejected submissions by form and offending field
	ValidationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_validation_failures_total",
			Help: "Rejected feedback submissions by form and field",
		},
		[]string{"form", "field"},
	)
)

// Store metrics
var (
	// StoreLoadFailuresTotal counts loads that degraded to an empty collection
	StoreLoadFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_store_load_failures_total",
			Help: "Review store loads recovered to an empty collection, by reason (read/decode)",
		},
		[]string{"reason"},
	)

	// StoreAppendsTotal counts append attempts by status
	StoreAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_store_appends_total",
			Help: "Review store appends by status",
		},
		[]string{"status"},
	)

	// StoreReviews tracks the collection size seen by the last load or append
	StoreReviews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "review_store_reviews",
			Help: "Number of reviews in the collection at the last load or append",
		},
	)
)

// Dashboard metrics
var (
	DashboardRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dashboard_refreshes_total",
			Help: "Dashboard reloads triggered by change notifications",
		},
	)

	DashboardsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboards_active",
			Help: "Dashboards currently subscribed to change notifications",
		},
	)

	// WebSocketConnectionsCurrent tracks connected dashboard sockets
	WebSocketConnectionsCurrent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_websocket_connections_current",
			Help: "Connected dashboard WebSocket clients",
		},
	)
)

// Auth and worker metrics
var (
	AuthorizationDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_denials_total",
			Help: "Admin gate denials by reason (unauthenticated/forbidden)",
		},
		[]string{"reason"},
	)

	ExportJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_export_jobs_total",
			Help: "Review export jobs by status",
		},
		[]string{"status"},
	)
)
