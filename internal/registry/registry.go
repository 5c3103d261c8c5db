// Package registry tracks the currently mounted page and the actions it
// exposes to the assistant. Pages register on mount and unregister on
// teardown; at most one page is current at a time.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/winbeat/assist/model"
)

// ActionFunc is a callable a page exposes to external callers. A non-nil
// error is folded into a failed ActionResult at the registry boundary, so
// failures never escape to the chat surface as raw errors.
type ActionFunc func(ctx context.Context, params map[string]any) (model.ActionResult, error)

// registration is one mounted page's actions and observable state.
type registration struct {
	pageID     string
	actions    map[string]ActionFunc
	snapshot   map[string]any
	generation string
}

// Registry stores the current page registration. It is safe for concurrent
// use: workflow steps and HTTP handlers read it from separate goroutines.
type Registry struct {
	mu      sync.RWMutex
	current *registration
	changed chan struct{}
}

// New creates an empty registry with no page registered.
func New() *Registry {
	return &Registry{changed: make(chan struct{})}
}

// RegisterPage installs a page's actions and snapshot and marks it current,
// replacing any prior registration. Re-registration is idempotent and is
// expected on every page state change. The returned generation token
// identifies this registration; callers that resume after a suspension
// point can present it to detect staleness.
func (r *Registry) RegisterPage(pageID string, actions map[string]ActionFunc, snapshot map[string]any) string {
	gen := uuid.NewString()

	r.mu.Lock()
	r.current = &registration{
		pageID:     pageID,
		actions:    actions,
		snapshot:   snapshot,
		generation: gen,
	}
	r.broadcastLocked()
	r.mu.Unlock()

	return gen
}

// UnregisterPage removes the registration for pageID. If another page has
// registered since, the call is a no-op so a late teardown cannot clobber
// the newer page.
func (r *Registry) UnregisterPage(pageID string) {
	r.mu.Lock()
	if r.current != nil && r.current.pageID == pageID {
		r.current = nil
		r.broadcastLocked()
	}
	r.mu.Unlock()
}

// CurrentPage returns the current page id, or "" when none is registered.
func (r *Registry) CurrentPage() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return ""
	}
	return r.current.pageID
}

// Registered reports whether any page is currently registered.
func (r *Registry) Registered() bool {
	return r.CurrentPage() != ""
}

// PageContext returns a snapshot of the current registration for prompt
// construction and the interpreter's page-action branch. Action names are
// sorted for stable output.
func (r *Registry) PageContext() model.PageContext {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.current == nil {
		return model.PageContext{}
	}

	names := make([]string, 0, len(r.current.actions))
	for name := range r.current.actions {
		names = append(names, name)
	}
	sort.Strings(names)

	return model.PageContext{
		Page:       r.current.pageID,
		Actions:    names,
		Data:       r.current.snapshot,
		Generation: r.current.generation,
	}
}

// ExecuteAction invokes the named action on the current page. It returns a
// NO_PAGE_REGISTERED error when no page is current and an ACTION_NOT_FOUND
// error when the current page does not expose the action. Errors returned
// by the action itself become a failed ActionResult, not an error.
func (r *Registry) ExecuteAction(ctx context.Context, action string, params map[string]any) (model.ActionResult, error) {
	return r.execute(ctx, "", action, params)
}

// ExecuteActionChecked is ExecuteAction with a staleness guard: if the
// caller's generation token no longer matches the current registration the
// call is rejected with a STALE_PAGE error instead of running against a
// page the caller never observed.
func (r *Registry) ExecuteActionChecked(ctx context.Context, generation, action string, params map[string]any) (model.ActionResult, error) {
	return r.execute(ctx, generation, action, params)
}

func (r *Registry) execute(ctx context.Context, generation, action string, params map[string]any) (model.ActionResult, error) {
	r.mu.RLock()
	current := r.current
	r.mu.RUnlock()

	if current == nil {
		return model.ActionResult{}, model.NewNoPageRegisteredError()
	}
	if generation != "" && generation != current.generation {
		return model.ActionResult{}, model.NewStalePageError(current.pageID)
	}
	fn, ok := current.actions[action]
	if !ok {
		return model.ActionResult{}, model.NewActionNotFoundError(action, current.pageID)
	}

	result, err := fn(ctx, params)
	if err != nil {
		return model.ActionResult{Success: false, Message: err.Error()}, nil
	}
	return result, nil
}

// AwaitPage blocks until pageID is the current registration or ctx expires.
// It replaces blind settle sleeps: a navigation step awaits the destination
// page's registration instead of guessing how long mounting takes.
func (r *Registry) AwaitPage(ctx context.Context, pageID string) error {
	for {
		r.mu.RLock()
		ready := r.current != nil && r.current.pageID == pageID
		ch := r.changed
		r.mu.RUnlock()

		if ready {
			return nil
		}

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// broadcastLocked wakes all AwaitPage waiters. Callers hold r.mu.
func (r *Registry) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}
