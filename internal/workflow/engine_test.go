package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/config"
	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

// fakeNav registers a page on Navigate, standing in for a real controller
// mount, and counts invocations so tests can assert skips.
type fakeNav struct {
	mu      sync.Mutex
	calls   int
	reg     *registry.Registry
	pageID  string
	actions map[string]registry.ActionFunc
}

func (f *fakeNav) Navigate(_ context.Context, _ string, _ map[string]any) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.reg.RegisterPage(f.pageID, f.actions, nil)
	return nil
}

func (f *fakeNav) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okAction(msg string) registry.ActionFunc {
	return func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
		return model.ActionResult{Success: true, Message: msg}, nil
	}
}

func failAction(msg string) registry.ActionFunc {
	return func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
		return model.ActionResult{Success: false, Message: msg}, nil
	}
}

func testConfig() config.WorkflowConfig {
	return config.WorkflowConfig{
		StepDelay:        time.Millisecond,
		ReadinessTimeout: 500 * time.Millisecond,
		HistoryLimit:     10,
	}
}

func newTestEngine(nav *fakeNav) *Engine {
	return NewEngine(nav.reg, nav, testConfig(), zap.NewNop(), nil)
}

func TestExecuteNavigateSearchSuccess(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageRegistrations, actions: map[string]registry.ActionFunc{
		"search": okAction("Found 2 registrations."),
	}}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
		Page:    pages.PageRegistrations,
		Company: "ABC",
	})

	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.CompletedSteps != 2 || outcome.TotalSteps != 2 {
		t.Errorf("steps = %d/%d", outcome.CompletedSteps, outcome.TotalSteps)
	}
	if nav.callCount() != 1 {
		t.Errorf("navigations = %d, want 1", nav.callCount())
	}
	if e.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", e.history.Len())
	}
}

func TestExecuteAbortsAtFirstFailure(t *testing.T) {
	var editCalls int
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageRegistrations, actions: map[string]registry.ActionFunc{
		"search": failAction("search exploded"),
		"edit": func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
			editCalls++
			return model.ActionResult{Success: true}, nil
		},
	}}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowSearchEdit, model.WorkflowParameters{
		Page:    pages.PageRegistrations,
		Company: "ABC",
	})

	if outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.CompletedSteps != 1 {
		t.Errorf("completedSteps = %d, want 1 (navigate only)", outcome.CompletedSteps)
	}
	if outcome.FailedStep != "search" || outcome.ErrorMessage != "search exploded" {
		t.Errorf("failedStep = %q, errorMessage = %q", outcome.FailedStep, outcome.ErrorMessage)
	}
	if editCalls != 0 {
		t.Errorf("edit step ran %d times after a failed search, want 0", editCalls)
	}
	if len(outcome.Steps) != 2 {
		t.Errorf("step trace = %d entries, want 2", len(outcome.Steps))
	}
	// Failures are recorded in history too.
	if e.history.Len() != 1 {
		t.Errorf("history len = %d, want 1", e.history.Len())
	}
}

func TestExecuteSingleFlight(t *testing.T) {
	release := make(chan struct{})
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageClients, actions: map[string]registry.ActionFunc{
		"search": func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
			<-release
			return model.ActionResult{Success: true, Message: "done"}, nil
		},
	}}
	e := newTestEngine(nav)

	first := make(chan model.WorkflowOutcome, 1)
	go func() {
		first <- e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
			Page: pages.PageClients, ClientName: "ABC",
		})
	}()

	// Wait until the first execution is in flight.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, running := e.Current(); running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first execution never started")
		}
		time.Sleep(time.Millisecond)
	}

	second := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
		Page: pages.PageClients,
	})
	if second.Success {
		t.Fatal("second concurrent execution must be rejected")
	}
	if !strings.Contains(second.Message, "Another workflow") {
		t.Errorf("message = %q", second.Message)
	}

	close(release)
	if outcome := <-first; !outcome.Success {
		t.Fatalf("first outcome = %+v", outcome)
	}

	// Gate released: a new execution runs again.
	if outcome := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
		Page: pages.PageClients,
	}); !outcome.Success {
		t.Fatalf("post-release outcome = %+v", outcome)
	}
}

func TestExecuteSkipsNavigationWhenAlreadyCurrent(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageRegistrations, actions: nil}
	// The page is already mounted with every later step's action.
	reg.RegisterPage(pages.PageRegistrations, map[string]registry.ActionFunc{
		"search":      okAction("found"),
		"edit":        okAction("editing"),
		"downloadPdf": okAction("downloading"),
	}, nil)
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowSearchEditDownload, model.WorkflowParameters{
		Page:           pages.PageRegistrations,
		Company:        "ABC",
		SkipNavigation: true,
	})

	if !outcome.Success {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Steps[0].Status != model.StepStatusSkipped {
		t.Errorf("navigate status = %q, want skipped", outcome.Steps[0].Status)
	}
	if outcome.CompletedSteps != outcome.TotalSteps {
		t.Errorf("completedSteps = %d/%d", outcome.CompletedSteps, outcome.TotalSteps)
	}
	if nav.callCount() != 0 {
		t.Errorf("navigation side effect invoked %d times, want 0", nav.callCount())
	}
}

func TestExecuteUnknownWorkflow(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageClients}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), "bogus", model.WorkflowParameters{})
	if outcome.Success || !strings.Contains(outcome.Message, "Unknown workflow") {
		t.Fatalf("outcome = %+v", outcome)
	}
	// Gate must be released even on early exits.
	if outcome := e.Execute(context.Background(), "bogus", model.WorkflowParameters{}); strings.Contains(outcome.Message, "Another workflow") {
		t.Fatal("gate leaked after unknown workflow")
	}
}

func TestExecuteUnknownPageFailsNavigate(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageClients}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
		Page: "mystery-page",
	})
	if outcome.Success || outcome.FailedStep != "navigate" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestExecuteMissingPageFailsNavigate(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageClients}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{})
	if outcome.Success || outcome.FailedStep != "navigate" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.ErrorMessage != "No target page specified." {
		t.Errorf("errorMessage = %q", outcome.ErrorMessage)
	}
	if nav.callCount() != 0 {
		t.Errorf("navigations = %d, want 0", nav.callCount())
	}
}

func TestSettleUsesPerActionBounds(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageRegistrations}
	cfg := config.WorkflowConfig{
		StepDelay:        time.Hour,
		NavigationSettle: time.Millisecond,
		SearchSettle:     time.Millisecond,
		ReadinessTimeout: 500 * time.Millisecond,
		HistoryLimit:     10,
	}
	e := NewEngine(nav.reg, nav, cfg, zap.NewNop(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := e.settle(ctx, model.StepActionNavigate, 0); err != nil {
		t.Errorf("settle(navigate) error = %v, want ~1ms navigation bound", err)
	}
	if err := e.settle(ctx, model.StepActionSearch, 0); err != nil {
		t.Errorf("settle(search) error = %v, want ~1ms search bound", err)
	}
	// Other actions pace on the hour-long step delay and hit the deadline.
	if err := e.settle(ctx, model.StepActionEdit, 0); err == nil {
		t.Error("settle(edit) = nil, want context deadline against the step delay")
	}
}

func TestExecuteEditWithoutIdentifier(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageRegistrations, actions: map[string]registry.ActionFunc{
		"search": okAction("found"),
		"edit":   okAction("editing"),
	}}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowSearchEdit, model.WorkflowParameters{
		Page: pages.PageRegistrations,
	})
	if outcome.Success || outcome.FailedStep != "edit" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.ErrorMessage, "which record to edit") {
		t.Errorf("errorMessage = %q", outcome.ErrorMessage)
	}
}

func TestExecuteDownloadRequiresRegistrationsPage(t *testing.T) {
	reg := registry.New()
	reg.RegisterPage(pages.PageClients, map[string]registry.ActionFunc{
		"search":      okAction("found"),
		"edit":        okAction("editing"),
		"downloadPdf": okAction("downloading"),
	}, nil)
	nav := &fakeNav{reg: reg, pageID: pages.PageClients}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowSearchEditDownload, model.WorkflowParameters{
		Page:           pages.PageClients,
		ClientName:     "ABC",
		SkipNavigation: true,
	})
	if outcome.Success || outcome.FailedStep != "download" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.ErrorMessage, "registrations page") {
		t.Errorf("errorMessage = %q", outcome.ErrorMessage)
	}
}

func TestExecuteRecoversFromPanickingAction(t *testing.T) {
	reg := registry.New()
	nav := &fakeNav{reg: reg, pageID: pages.PageClients, actions: map[string]registry.ActionFunc{
		"search": func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
			panic("boom")
		},
	}}
	e := newTestEngine(nav)

	outcome := e.Execute(context.Background(), WorkflowNavigateSearch, model.WorkflowParameters{
		Page: pages.PageClients, ClientName: "ABC",
	})
	if outcome.Success || outcome.FailedStep != "search" {
		t.Fatalf("outcome = %+v", outcome)
	}
	// Gate must be released after a panic.
	if _, running := e.Current(); running {
		t.Fatal("execution still marked current after panic")
	}
}

func TestHistoryNewestFirstAndBounded(t *testing.T) {
	h := NewHistory(2)
	for _, id := range []string{"a", "b", "c"} {
		h.Append(model.WorkflowExecution{ID: id})
	}
	got := h.List()
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("history = %+v", got)
	}
}
