package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Purchase metrics
	PurchasesTotal   *prometheus.CounterVec
	PurchaseDuration *prometheus.HistogramVec
	PurchaseFailures *prometheus.CounterVec
	PendingPurchases prometheus.Gauge
	PayoutsGranted   *prometheus.CounterVec
	RestoresTotal    *prometheus.CounterVec

	// Receipt metrics
	ReceiptValidations *prometheus.CounterVec

	// Continuation metrics
	AdRequestsTotal  *prometheus.CounterVec
	ContinuesGranted *prometheus.CounterVec
	RewardCooldown   prometheus.Gauge

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState    *prometheus.GaugeVec
	CircuitBreakerRequests *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		PurchasesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchases_total",
				Help:      "Total number of purchases by product and outcome",
			},
			[]string{"product_id", "outcome"},
		),
		PurchaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "purchase_duration_seconds",
				Help:      "Purchase lifecycle duration from initiation to terminal state",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"product_id", "outcome"},
		),
		PurchaseFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purchase_failures_total",
				Help:      "Total number of failed purchases by reason",
			},
			[]string{"product_id", "reason"},
		),
		PendingPurchases: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pending_purchases",
				Help:      "Number of purchases awaiting deferred confirmation",
			},
		),
		PayoutsGranted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payouts_granted_total",
				Help:      "Total quantity paid out by type and subtype",
			},
			[]string{"type", "subtype"},
		),
		RestoresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "restores_total",
				Help:      "Total number of restore passes by outcome",
			},
			[]string{"outcome"},
		),
		ReceiptValidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "receipt_validations_total",
				Help:      "Total number of receipt validations by store and result",
			},
			[]string{"store", "result"},
		),
		AdRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ad_requests_total",
				Help:      "Total number of reward ad requests by result",
			},
			[]string{"result"},
		),
		ContinuesGranted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "continues_granted_total",
				Help:      "Total number of continuations granted by kind",
			},
			[]string{"kind"},
		),
		RewardCooldown: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reward_cooldown_seconds",
				Help:      "Seconds remaining in the reward ad cooldown",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
		CircuitBreakerRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_requests_total",
				Help:      "Total number of circuit breaker requests",
			},
			[]string{"name", "result"},
		),
	}

	// Register all collectors
	factory.MustRegister(
		m.PurchasesTotal,
		m.PurchaseDuration,
		m.PurchaseFailures,
		m.PendingPurchases,
		m.PayoutsGranted,
		m.RestoresTotal,
		m.ReceiptValidations,
		m.AdRequestsTotal,
		m.ContinuesGranted,
		m.RewardCooldown,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
		m.CircuitBreakerRequests,
	)

	return m
}
