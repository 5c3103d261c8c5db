// Package assistant is the command interpreter: it classifies a free-text
// query into an intent and routes it to a page action, the workflow
// engine, a rule handler, or the generative fallback.
package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/gemini"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/internal/workflow"
	"github.com/winbeat/assist/model"
)

const capabilityMessage = "I can help you with a few things: navigation " +
	"('go to clients'), searching ('search for ABC Strata registration'), " +
	"analysis ('check invalid ABNs', 'which registrations expire soon'), and " +
	"counting ('how many clients'). What would you like to do?"

const notSureMessage = "I'm not sure how to help with that. Try a command " +
	"like 'go to clients' or 'search for a registration'."

// Interpreter turns chat queries into structured assistant responses.
type Interpreter struct {
	registry *registry.Registry
	nav      *pages.Navigator
	backend  *backend.Client
	gemini   *gemini.Adapter
	engine   *workflow.Engine
	logger   *zap.Logger
	metrics  *observability.Metrics

	// now is replaceable so expiry-window tests are deterministic.
	now func() time.Time
}

// New creates an interpreter. metrics may be nil in tests.
func New(reg *registry.Registry, nav *pages.Navigator, client *backend.Client, adapter *gemini.Adapter, engine *workflow.Engine, logger *zap.Logger, metrics *observability.Metrics) *Interpreter {
	return &Interpreter{
		registry: reg,
		nav:      nav,
		backend:  client,
		gemini:   adapter,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// ProcessQuery is the single entry point for a chat turn. Precedence, first
// match wins: multi-step workflow intent, page-action shortcut on the
// current page, generative fallback for open-ended queries, then the
// rule-based intent table. Failures never escape as errors; every path
// yields a plain-language response.
func (in *Interpreter) ProcessQuery(ctx context.Context, query string) (resp model.AssistantResponse) {
	start := in.now()
	defer func() {
		if r := recover(); r != nil {
			observability.RequestLogger(ctx, in.logger).Error("query handler panicked",
				zap.Any("panic", r))
			resp = model.AssistantResponse{
				Message: notSureMessage,
				Source:  model.SourceError,
			}
		}
		if in.metrics != nil {
			in.metrics.RecordQuery(resp.Source, time.Since(start))
		}
	}()

	user := model.UserFrom(ctx)

	// Multi-step phrasing goes straight to the workflow engine.
	if match := workflow.IdentifyWorkflow(query); match != nil {
		params := workflow.ExtractParameters(query)
		params.SkipNavigation = match.SkipNavigation
		// Single-page phrasing names no page; it means the one that is open.
		if params.SkipNavigation && params.Page == "" {
			params.Page = in.registry.CurrentPage()
		}
		outcome := in.engine.Execute(ctx, match.WorkflowID, params)
		return model.AssistantResponse{
			Message:  outcome.Message,
			Source:   model.SourceWorkflow,
			Workflow: &outcome,
		}
	}

	// Page-action shortcut: direct phrasing while the registrations page
	// is open acts on it without navigation.
	if resp, ok := in.tryPageAction(ctx, query); ok {
		return resp
	}

	// Open-ended queries go to the generative service when configured.
	if in.gemini.IsConfigured() && in.gemini.ShouldGenerate(query) {
		if reply := in.gemini.Generate(ctx, query, user, in.registry.PageContext()); reply.Success {
			return model.AssistantResponse{Message: reply.Message, Source: reply.Source}
		}
	}

	// Rule-based intent classification.
	if resp, ok := in.applyRules(ctx, query, user); ok {
		return resp
	}

	// Nothing matched.
	if !in.gemini.IsConfigured() {
		return model.AssistantResponse{Message: capabilityMessage, Source: model.SourceSystem}
	}
	if reply := in.gemini.Generate(ctx, query, user, in.registry.PageContext()); reply.Success {
		return model.AssistantResponse{Message: reply.Message, Source: reply.Source}
	}
	return model.AssistantResponse{Message: notSureMessage, Source: model.SourceFallback}
}

// navigate applies the navigation side effect and shapes the response the
// chat surface uses to move the UI.
func (in *Interpreter) navigate(ctx context.Context, message, path string, state map[string]any) model.AssistantResponse {
	if err := in.nav.Navigate(ctx, path, state); err != nil {
		return model.AssistantResponse{
			Message: safeMessage(err),
			Source:  model.SourceError,
		}
	}
	return model.AssistantResponse{
		Message:    message,
		Source:     model.SourceRuleBased,
		Navigation: &model.Navigation{Path: path, State: state},
	}
}

func safeMessage(err error) string {
	if envelope, ok := err.(*model.ErrorEnvelope); ok {
		return envelope.Message
	}
	return err.Error()
}
