package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScopedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_scoped_requests_total",
			Help: "Requests executed inside a bound tenant scope",
		},
		[]string{"tenant"},
	)

	AuthzDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denials_total",
			Help: "Role-authorization rejections by error kind",
		},
		[]string{"kind"},
	)

	RLSViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rls_violations_total",
			Help: "Row-security rejections surfaced by the database",
		},
		[]string{"path"},
	)

	AuditProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_processed_total",
			Help: "Tenant events persisted to the audit trail",
		},
		[]string{"action"},
	)

	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_events_queue_depth",
			Help: "Current depth of the tenant-events queue",
		},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(ScopedRequests)
	prometheus.MustRegister(AuthzDenials)
	prometheus.MustRegister(RLSViolations)
	prometheus.MustRegister(AuditProcessed)
	prometheus.MustRegister(QueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
