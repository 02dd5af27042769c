package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	roleDisables      prometheus.Counter
	roleReassignments prometheus.Counter
	resetCodesIssued  prometheus.Counter
	authFailures      *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	roleDisables := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesizen_role_disables_total",
		Help: "Roles disabled through the lifecycle manager",
	})

	roleReassignments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesizen_role_user_reassignments_total",
		Help: "Users moved to the base role because their role was disabled",
	})

	resetCodesIssued := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cesizen_password_reset_codes_total",
		Help: "Password reset codes issued",
	})

	authFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cesizen_auth_failures_total",
		Help: "Rejected authentication attempts by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, roleDisables, roleReassignments, resetCodesIssued, authFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		roleDisables:      roleDisables,
		roleReassignments: roleReassignments,
		resetCodesIssued:  resetCodesIssued,
		authFailures:      authFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveRoleDisabled counts a role disable and the users it moved.
func (m *MetricsService) ObserveRoleDisabled(reassigned int64) {
	if m == nil {
		return
	}
	m.roleDisables.Inc()
	if reassigned > 0 {
		m.roleReassignments.Add(float64(reassigned))
	}
}

// ObserveResetCodeIssued counts issued reset codes.
func (m *MetricsService) ObserveResetCodeIssued() {
	if m == nil {
		return
	}
	m.resetCodesIssued.Inc()
}

// ObserveAuthFailure counts a rejected login or token by reason.
func (m *MetricsService) ObserveAuthFailure(reason string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(reason).Inc()
}
