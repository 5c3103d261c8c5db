package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/winbeat/assist/model"
)

func noopAction(_ context.Context, _ map[string]any) (model.ActionResult, error) {
	return model.ActionResult{Success: true, Message: "ok"}, nil
}

func TestSingleCurrentInvariant(t *testing.T) {
	r := New()

	r.RegisterPage("clients", map[string]ActionFunc{"search": noopAction}, nil)
	r.RegisterPage("users", map[string]ActionFunc{"search": noopAction}, nil)

	if got := r.CurrentPage(); got != "users" {
		t.Errorf("CurrentPage() = %q, want users", got)
	}

	r.UnregisterPage("users")
	if got := r.CurrentPage(); got != "" {
		t.Errorf("CurrentPage() after unregister = %q, want empty", got)
	}
}

func TestUnregisterStalePageIsNoop(t *testing.T) {
	r := New()
	r.RegisterPage("clients", nil, nil)
	r.RegisterPage("users", nil, nil)

	// A late teardown of the old page must not clear the new one.
	r.UnregisterPage("clients")
	if got := r.CurrentPage(); got != "users" {
		t.Errorf("CurrentPage() = %q, want users", got)
	}
}

func TestExecuteActionNoPageRegistered(t *testing.T) {
	r := New()

	_, err := r.ExecuteAction(context.Background(), "search", nil)
	var envelope *model.ErrorEnvelope
	if !errors.As(err, &envelope) || envelope.Code != model.ErrNoPageRegistered {
		t.Fatalf("error = %v, want %s", err, model.ErrNoPageRegistered)
	}
}

func TestExecuteActionNotFound(t *testing.T) {
	r := New()
	r.RegisterPage("clients", map[string]ActionFunc{"edit": noopAction}, nil)

	_, err := r.ExecuteAction(context.Background(), "search", nil)
	var envelope *model.ErrorEnvelope
	if !errors.As(err, &envelope) || envelope.Code != model.ErrActionNotFound {
		t.Fatalf("error = %v, want %s", err, model.ErrActionNotFound)
	}
}

func TestExecuteActionFoldsActionErrors(t *testing.T) {
	r := New()
	r.RegisterPage("clients", map[string]ActionFunc{
		"search": func(_ context.Context, _ map[string]any) (model.ActionResult, error) {
			return model.ActionResult{}, errors.New("backend unreachable")
		},
	}, nil)

	result, err := r.ExecuteAction(context.Background(), "search", nil)
	if err != nil {
		t.Fatalf("action errors must not escape: %v", err)
	}
	if result.Success || result.Message != "backend unreachable" {
		t.Errorf("result = %+v, want folded failure", result)
	}
}

func TestExecuteActionCheckedStaleGeneration(t *testing.T) {
	r := New()
	gen := r.RegisterPage("clients", map[string]ActionFunc{"search": noopAction}, nil)
	r.RegisterPage("clients", map[string]ActionFunc{"search": noopAction}, nil)

	_, err := r.ExecuteActionChecked(context.Background(), gen, "search", nil)
	var envelope *model.ErrorEnvelope
	if !errors.As(err, &envelope) || envelope.Code != model.ErrStalePage {
		t.Fatalf("error = %v, want %s", err, model.ErrStalePage)
	}
}

func TestExecuteActionCheckedCurrentGeneration(t *testing.T) {
	r := New()
	gen := r.RegisterPage("clients", map[string]ActionFunc{"search": noopAction}, nil)

	result, err := r.ExecuteActionChecked(context.Background(), gen, "search", nil)
	if err != nil {
		t.Fatalf("ExecuteActionChecked() error = %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestPageContext(t *testing.T) {
	r := New()

	if ctx := r.PageContext(); ctx.Registered() {
		t.Errorf("empty registry PageContext = %+v", ctx)
	}

	r.RegisterPage("manage-registrations", map[string]ActionFunc{
		"search":      noopAction,
		"edit":        noopAction,
		"downloadPdf": noopAction,
	}, map[string]any{"searchTerm": "ABC", "resultCount": 3})

	ctx := r.PageContext()
	if ctx.Page != "manage-registrations" {
		t.Errorf("page = %q", ctx.Page)
	}
	want := []string{"downloadPdf", "edit", "search"}
	if len(ctx.Actions) != len(want) {
		t.Fatalf("actions = %v, want %v", ctx.Actions, want)
	}
	for i, name := range want {
		if ctx.Actions[i] != name {
			t.Errorf("actions[%d] = %q, want %q", i, ctx.Actions[i], name)
		}
	}
	if ctx.Data["resultCount"] != 3 {
		t.Errorf("snapshot = %v", ctx.Data)
	}
	if ctx.Generation == "" {
		t.Error("generation token missing")
	}
}

func TestAwaitPageAlreadyCurrent(t *testing.T) {
	r := New()
	r.RegisterPage("clients", nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.AwaitPage(ctx, "clients"); err != nil {
		t.Fatalf("AwaitPage() error = %v", err)
	}
}

func TestAwaitPageWakesOnRegistration(t *testing.T) {
	r := New()

	done := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		done <- r.AwaitPage(ctx, "users")
	}()

	// Registrations for other pages must not satisfy the wait.
	r.RegisterPage("clients", nil, nil)
	time.Sleep(10 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("AwaitPage returned early: %v", err)
	default:
	}

	r.RegisterPage("users", nil, nil)
	if err := <-done; err != nil {
		t.Fatalf("AwaitPage() error = %v", err)
	}
}

func TestAwaitPageTimeout(t *testing.T) {
	r := New()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.AwaitPage(ctx, "users")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("AwaitPage() error = %v, want deadline exceeded", err)
	}
}
