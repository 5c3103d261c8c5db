package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/assistant"
	"github.com/winbeat/assist/internal/chat"
	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/gemini"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/internal/workflow"
)

// Dependencies holds all injected dependencies for the HTTP transport
// layer. Authenticate defaults to a pass-through when nil, which tests use.
type Dependencies struct {
	Config       *config.Config
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Authenticate func(http.Handler) http.Handler
	Interpreter  *assistant.Interpreter
	Chat         *chat.Store
	Registry     *registry.Registry
	Engine       *workflow.Engine
	Gemini       *gemini.Adapter
	Readiness    observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics bypass auth.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	r.Method(http.MethodGet, "/metrics", observability.Handler())

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}

		r.Post("/ui/assistant/query", handleQuery(deps.Interpreter, deps.Chat))
		r.Get("/ui/assistant/messages", handleMessages(deps.Chat))
		r.Get("/ui/assistant/status", handleAssistantStatus(deps.Gemini))
		r.Get("/ui/page/context", handlePageContext(deps.Registry))
		r.Get("/ui/workflows", handleWorkflowList(deps.Engine))
		r.Get("/ui/workflows/history", handleWorkflowHistory(deps.Engine))
		r.Delete("/ui/workflows/history", handleWorkflowHistoryClear(deps.Engine))
		r.Get("/ui/workflows/current", handleWorkflowCurrent(deps.Engine))
	})

	return r
}
