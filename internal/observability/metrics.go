package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets     = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets  = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	workflowDurationBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60}
)

// Metrics holds all Prometheus metric instruments for the assistant service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Query interpretation metrics
	QueriesTotal          *prometheus.CounterVec
	QueryDuration         *prometheus.HistogramVec
	RuleMatchesTotal      *prometheus.CounterVec
	GeminiRequestsTotal   *prometheus.CounterVec
	GeminiRequestDuration prometheus.Histogram

	// Page action metrics
	PageActionsTotal   *prometheus.CounterVec
	PageActionDuration *prometheus.HistogramVec
	RegisteredPages    prometheus.Gauge

	// Workflow metrics
	WorkflowExecutionsTotal *prometheus.CounterVec
	WorkflowDuration        *prometheus.HistogramVec
	WorkflowStepsTotal      *prometheus.CounterVec
	WorkflowRejectionsTotal prometheus.Counter

	// Backend invocation metrics
	BackendRequestsTotal       *prometheus.CounterVec
	BackendRequestDuration     *prometheus.HistogramVec
	BackendCircuitBreakerState prometheus.Gauge
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistd_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),

		// Queries
		QueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_queries_total",
			Help: "Total number of assistant queries by response source.",
		}, []string{"source"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistd_query_duration_seconds",
			Help:    "Assistant query processing duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"source"}),
		RuleMatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_rule_matches_total",
			Help: "Total number of intent rule matches.",
		}, []string{"rule"}),
		GeminiRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_gemini_requests_total",
			Help: "Total number of generative service requests.",
		}, []string{"status"}),
		GeminiRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assistd_gemini_request_duration_seconds",
			Help:    "Generative service request duration in seconds.",
			Buckets: backendDurationBuckets,
		}),

		// Page actions
		PageActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_page_actions_total",
			Help: "Total number of page action executions.",
		}, []string{"page", "action", "status"}),
		PageActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistd_page_action_duration_seconds",
			Help:    "Page action execution duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"page", "action"}),
		RegisteredPages: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assistd_registered_pages",
			Help: "Number of pages currently registered with the assistant.",
		}),

		// Workflows
		WorkflowExecutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_workflow_executions_total",
			Help: "Total number of workflow executions.",
		}, []string{"workflow_id", "outcome"}),
		WorkflowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistd_workflow_duration_seconds",
			Help:    "Workflow execution duration in seconds.",
			Buckets: workflowDurationBuckets,
		}, []string{"workflow_id"}),
		WorkflowStepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_workflow_steps_total",
			Help: "Total number of workflow step executions.",
		}, []string{"workflow_id", "action", "status"}),
		WorkflowRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assistd_workflow_rejections_total",
			Help: "Total workflow requests rejected because one was already running.",
		}),

		// Backend
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assistd_backend_requests_total",
			Help: "Total number of WinBeat API requests.",
		}, []string{"operation", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assistd_backend_request_duration_seconds",
			Help:    "WinBeat API request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"operation"}),
		BackendCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assistd_backend_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.QueriesTotal,
		m.QueryDuration,
		m.RuleMatchesTotal,
		m.GeminiRequestsTotal,
		m.GeminiRequestDuration,
		m.PageActionsTotal,
		m.PageActionDuration,
		m.RegisteredPages,
		m.WorkflowExecutionsTotal,
		m.WorkflowDuration,
		m.WorkflowStepsTotal,
		m.WorkflowRejectionsTotal,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendCircuitBreakerState,
	)

	return m
}

// --- Recording helpers ---

// RecordQuery records an assistant query by its response source.
func (m *Metrics) RecordQuery(source string, duration time.Duration) {
	m.QueriesTotal.WithLabelValues(source).Inc()
	m.QueryDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRuleMatch records a matched intent rule.
func (m *Metrics) RecordRuleMatch(rule string) {
	m.RuleMatchesTotal.WithLabelValues(rule).Inc()
}

// RecordGeminiRequest records a generative service request.
func (m *Metrics) RecordGeminiRequest(status string, duration time.Duration) {
	m.GeminiRequestsTotal.WithLabelValues(status).Inc()
	m.GeminiRequestDuration.Observe(duration.Seconds())
}

// RecordPageAction records a page action execution.
func (m *Metrics) RecordPageAction(page, action, status string, duration time.Duration) {
	m.PageActionsTotal.WithLabelValues(page, action, status).Inc()
	m.PageActionDuration.WithLabelValues(page, action).Observe(duration.Seconds())
}

// SetRegisteredPages sets the number of registered pages.
func (m *Metrics) SetRegisteredPages(count float64) {
	m.RegisteredPages.Set(count)
}

// RecordWorkflowExecution records a completed workflow execution.
func (m *Metrics) RecordWorkflowExecution(workflowID, outcome string, duration time.Duration) {
	m.WorkflowExecutionsTotal.WithLabelValues(workflowID, outcome).Inc()
	m.WorkflowDuration.WithLabelValues(workflowID).Observe(duration.Seconds())
}

// RecordWorkflowStep records a workflow step execution.
func (m *Metrics) RecordWorkflowStep(workflowID, action, status string) {
	m.WorkflowStepsTotal.WithLabelValues(workflowID, action, status).Inc()
}

// RecordWorkflowRejection records a workflow rejected due to single-flight.
func (m *Metrics) RecordWorkflowRejection() {
	m.WorkflowRejectionsTotal.Inc()
}

// RecordBackendRequest records a WinBeat API request.
func (m *Metrics) RecordBackendRequest(operation string, status int, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.BackendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets the breaker gauge.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetCircuitBreakerState(state float64) {
	m.BackendCircuitBreakerState.Set(state)
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pattern := routePattern(r)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(duration.Seconds())
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
