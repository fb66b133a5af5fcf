package metrics

import "github.com/prometheus/client_golang/prometheus"

// Digest pipeline Prometheus metrics.
var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readdigest",
			Name:      "runs_total",
			Help:      "Total number of digest runs by terminal state",
		},
		[]string{"state"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "readdigest",
			Name:      "run_duration_seconds",
			Help:      "Digest run duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"state"},
	)

	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readdigest",
			Name:      "records_total",
			Help:      "Extracted records by outcome",
		},
		[]string{"result"}, // "found" / "added" / "duplicate"
	)

	BudgetTokensUsed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "readdigest",
			Name:      "budget_tokens_used",
			Help:      "Cost units charged against the budget",
		},
	)

	BudgetRatio = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "readdigest",
			Name:      "budget_ratio",
			Help:      "Fraction of the budget ceiling consumed",
		},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readdigest",
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"}, // status: "sent" / "failed" / "skipped"
	)

	CategorizerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readdigest",
			Name:      "categorizer_requests_total",
			Help:      "Total number of categorizer requests",
		},
		[]string{"provider", "model", "status"},
	)

	CategoryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "readdigest",
			Name:      "category_cache_total",
			Help:      "Category cache lookups",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var digestMetricsRegistered bool

// RegisterDigestMetrics registers Prometheus digest metrics. Must be called once from main.
func RegisterDigestMetrics() {
	if digestMetricsRegistered {
		return
	}
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(RecordsTotal)
	prometheus.MustRegister(BudgetTokensUsed)
	prometheus.MustRegister(BudgetRatio)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(CategorizerRequestsTotal)
	prometheus.MustRegister(CategoryCacheTotal)
	digestMetricsRegistered = true
}
