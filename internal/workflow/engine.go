package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

// Navigator applies the navigation side effect of a navigate step.
// *pages.Navigator is the production implementation.
type Navigator interface {
	Navigate(ctx context.Context, path string, state map[string]any) error
}

// Engine executes workflow templates step by step. Only one workflow runs
// at a time process-wide; a second invocation while one is running is
// rejected immediately.
type Engine struct {
	registry  *registry.Registry
	nav       Navigator
	templates map[string]model.WorkflowTemplate
	history   *History
	cfg       config.WorkflowConfig
	logger    *zap.Logger
	metrics   *observability.Metrics

	executing atomic.Bool
	mu        sync.Mutex
	current   *model.WorkflowExecution
}

// NewEngine creates a workflow engine over the built-in templates.
// metrics may be nil in tests.
func NewEngine(reg *registry.Registry, nav Navigator, cfg config.WorkflowConfig, logger *zap.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		registry:  reg,
		nav:       nav,
		templates: Templates(),
		history:   NewHistory(cfg.HistoryLimit),
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Templates lists the available workflow templates.
func (e *Engine) Templates() []model.WorkflowTemplate {
	out := make([]model.WorkflowTemplate, 0, len(e.templates))
	for _, id := range []string{WorkflowNavigateSearch, WorkflowNavigateCreate, WorkflowSearchEdit, WorkflowSearchEditDownload} {
		out = append(out, e.templates[id])
	}
	return out
}

// History returns the completed execution history, newest first.
func (e *Engine) History() []model.WorkflowExecution {
	return e.history.List()
}

// ClearHistory drops the completed execution history.
func (e *Engine) ClearHistory() {
	e.history.Clear()
}

// Current returns a snapshot of the in-flight execution, if any.
func (e *Engine) Current() (model.WorkflowExecution, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return model.WorkflowExecution{}, false
	}
	return *e.current, true
}

// Execute runs a workflow template to completion or first failure. Steps
// run strictly in template order with an inter-step settle delay; the
// first failing step aborts the remainder. Every execution is appended to
// history, and the single-flight gate is released on every exit path.
func (e *Engine) Execute(ctx context.Context, workflowID string, params model.WorkflowParameters) model.WorkflowOutcome {
	if !e.executing.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.RecordWorkflowRejection()
		}
		return model.WorkflowOutcome{
			Success:    false,
			WorkflowID: workflowID,
			Message:    model.NewWorkflowBusyError().Message,
		}
	}
	defer func() {
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()
		e.executing.Store(false)
	}()

	template, ok := e.templates[workflowID]
	if !ok {
		return model.WorkflowOutcome{
			Success:    false,
			WorkflowID: workflowID,
			Message:    model.NewWorkflowNotFoundError(workflowID).Message,
		}
	}

	exec := model.WorkflowExecution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Parameters: params,
		StartTime:  time.Now(),
	}
	e.mu.Lock()
	e.current = &exec
	e.mu.Unlock()

	logger := observability.RequestLogger(ctx, e.logger)
	logger.Info("workflow started",
		zap.String("workflow_id", workflowID), zap.String("execution_id", exec.ID))

	outcome := model.WorkflowOutcome{
		WorkflowID:   workflowID,
		WorkflowName: template.Name,
		TotalSteps:   len(template.Steps),
	}

	for i, step := range template.Steps {
		result := e.runStep(ctx, step, &params)
		outcome.Steps = append(outcome.Steps, result)
		if e.metrics != nil {
			e.metrics.RecordWorkflowStep(workflowID, step.Action, result.Status)
		}

		if result.Status == model.StepStatusFailed {
			outcome.Success = false
			outcome.FailedStep = step.ID
			outcome.ErrorMessage = result.Message
			outcome.Message = fmt.Sprintf("Workflow %q failed at step %q: %s",
				template.Name, step.ID, result.Message)
			break
		}
		outcome.CompletedSteps++

		if i < len(template.Steps)-1 {
			if err := e.settle(ctx, step.Action, params.DelayBetweenSteps); err != nil {
				outcome.Success = false
				outcome.FailedStep = step.ID
				outcome.ErrorMessage = err.Error()
				outcome.Message = "Workflow cancelled."
				break
			}
		}
	}

	if outcome.CompletedSteps == outcome.TotalSteps {
		outcome.Success = true
		outcome.Message = fmt.Sprintf("Completed workflow: %s.", template.Name)
	}

	exec.EndTime = time.Now()
	exec.Outcome = outcome
	e.history.Append(exec)

	status := "failed"
	if outcome.Success {
		status = "success"
	}
	if e.metrics != nil {
		e.metrics.RecordWorkflowExecution(workflowID, status, exec.EndTime.Sub(exec.StartTime))
	}
	logger.Info("workflow finished",
		zap.String("workflow_id", workflowID),
		zap.String("execution_id", exec.ID),
		zap.String("status", status),
		zap.Int("completed_steps", outcome.CompletedSteps))

	return outcome
}

// runStep executes one step. Panics out of a step executor are caught and
// converted into a failed step so the gate and history stay consistent.
func (e *Engine) runStep(ctx context.Context, step model.StepDefinition, params *model.WorkflowParameters) (result model.StepResult) {
	result = model.StepResult{StepID: step.ID, Action: step.Action}
	defer func() {
		if r := recover(); r != nil {
			result.Status = model.StepStatusFailed
			result.Message = fmt.Sprintf("Step panicked: %v", r)
		}
	}()

	switch step.Action {
	case model.StepActionNavigate:
		return e.stepNavigate(ctx, result, params)
	case model.StepActionSearch:
		return e.stepAction(ctx, result, "search", searchParams(params))
	case model.StepActionEdit:
		target := editTarget(params)
		if target == nil {
			result.Status = model.StepStatusFailed
			result.Message = "Could not determine which record to edit."
			return result
		}
		return e.stepAction(ctx, result, "edit", target)
	case model.StepActionDownloadPDF:
		if e.registry.CurrentPage() != pages.PageRegistrations {
			result.Status = model.StepStatusFailed
			result.Message = "PDF download is only available on the registrations page."
			return result
		}
		return e.stepAction(ctx, result, "downloadPdf", nil)
	case model.StepActionCreate:
		return e.stepAction(ctx, result, "create", nil)
	default:
		result.Status = model.StepStatusFailed
		result.Message = model.NewUnknownStepError(step.Action).Message
		return result
	}
}

// stepNavigate resolves the target route and applies the navigation side
// effect, then awaits the destination page's registration instead of
// sleeping a fixed settle delay. The step is skipped when the parameters
// carry the single-page shortcut and the page is already current.
func (e *Engine) stepNavigate(ctx context.Context, result model.StepResult, params *model.WorkflowParameters) model.StepResult {
	if params.Page == "" {
		result.Status = model.StepStatusFailed
		result.Message = "No target page specified."
		return result
	}
	route, ok := pages.RouteFor(params.Page)
	if !ok {
		result.Status = model.StepStatusFailed
		result.Message = "Unknown page: " + params.Page
		return result
	}

	if params.SkipNavigation && e.registry.CurrentPage() == params.Page {
		result.Status = model.StepStatusSkipped
		result.Message = fmt.Sprintf("Already on the %s page.", params.Page)
		return result
	}

	if err := e.nav.Navigate(ctx, route, nil); err != nil {
		result.Status = model.StepStatusFailed
		result.Message = safeMessage(err)
		return result
	}

	if err := e.awaitPage(ctx, params.Page); err != nil {
		result.Status = model.StepStatusFailed
		result.Message = fmt.Sprintf("The %s page did not become ready.", params.Page)
		return result
	}

	result.Status = model.StepStatusCompleted
	result.Message = "Navigated to " + route + "."
	return result
}

// stepAction awaits page readiness and dispatches a page action through
// the registry. Action failures become failed steps with the action's own
// message.
func (e *Engine) stepAction(ctx context.Context, result model.StepResult, action string, actionParams map[string]any) model.StepResult {
	page := e.registry.CurrentPage()
	if page == "" {
		result.Status = model.StepStatusFailed
		result.Message = model.NewNoPageRegisteredError().Message
		return result
	}
	if err := e.awaitPage(ctx, page); err != nil {
		result.Status = model.StepStatusFailed
		result.Message = fmt.Sprintf("The %s page did not become ready.", page)
		return result
	}

	actionResult, err := e.registry.ExecuteAction(ctx, action, actionParams)
	if err != nil {
		result.Status = model.StepStatusFailed
		result.Message = safeMessage(err)
		return result
	}
	if !actionResult.Success {
		result.Status = model.StepStatusFailed
		result.Message = actionResult.Message
		return result
	}

	result.Status = model.StepStatusCompleted
	result.Message = actionResult.Message
	result.Data = actionResult.Data
	return result
}

// awaitPage bounds the registry readiness wait by the configured timeout.
func (e *Engine) awaitPage(ctx context.Context, pageID string) error {
	timeout := e.cfg.ReadinessTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.registry.AwaitPage(waitCtx, pageID)
}

// settle waits the inter-step delay, honoring cancellation. Navigation and
// search steps have their own settle bounds; other steps pace on the
// general step delay. An explicit per-request delay overrides all three.
func (e *Engine) settle(ctx context.Context, completedAction string, override time.Duration) error {
	delay := e.cfg.StepDelay
	switch completedAction {
	case model.StepActionNavigate:
		if e.cfg.NavigationSettle > 0 {
			delay = e.cfg.NavigationSettle
		}
	case model.StepActionSearch:
		if e.cfg.SearchSettle > 0 {
			delay = e.cfg.SearchSettle
		}
	}
	if override > 0 {
		delay = override
	}
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// searchParams shapes the search action parameters for the target page.
func searchParams(params *model.WorkflowParameters) map[string]any {
	switch params.Page {
	case pages.PageClients:
		return map[string]any{"term": firstNonEmpty(params.ClientName, params.SearchTerm)}
	case pages.PageUsers:
		return map[string]any{"userCode": firstNonEmpty(params.UserCode, params.SearchTerm)}
	default:
		return map[string]any{
			"company":    params.Company,
			"abn":        params.ABN,
			"lin":        params.LIN,
			"searchTerm": params.SearchTerm,
		}
	}
}

// editTarget resolves the identifier an edit step should act on, or nil
// when none can be determined.
func editTarget(params *model.WorkflowParameters) map[string]any {
	switch params.Page {
	case pages.PageClients:
		if name := firstNonEmpty(params.ClientName, params.SearchTerm); name != "" {
			return map[string]any{"clientName": name}
		}
	case pages.PageUsers:
		if code := firstNonEmpty(params.UserCode, params.SearchTerm); code != "" {
			return map[string]any{"userCode": code}
		}
	default:
		if name := firstNonEmpty(params.Company, params.SearchTerm); name != "" {
			return map[string]any{"companyName": name}
		}
	}
	return nil
}

// safeMessage extracts the user-safe message from an error.
func safeMessage(err error) string {
	var envelope *model.ErrorEnvelope
	if errors.As(err, &envelope) {
		return envelope.Message
	}
	return err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
