package pages

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

// UsersPage is the controller for the user administration page. Every
// action is gated on admin security; the upstream endpoint enforces the
// same rule, but failing locally gives a clean message instead of a 403.
type UsersPage struct {
	registry *registry.Registry
	backend  *backend.Client
	logger   *zap.Logger

	mu         sync.Mutex
	searchTerm string
	results    []backend.UserRecord
	loaded     *backend.UserRecord
	editMode   string
}

// NewUsersPage creates the users controller.
func NewUsersPage(reg *registry.Registry, client *backend.Client, logger *zap.Logger) *UsersPage {
	return &UsersPage{registry: reg, backend: client, logger: logger}
}

func (p *UsersPage) PageID() string { return PageUsers }
func (p *UsersPage) Route() string  { return RouteUsers }

func (p *UsersPage) Mount(ctx context.Context, state map[string]any) {
	p.mu.Lock()
	p.searchTerm = ""
	p.results = nil
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	if term, _ := state["searchTerm"].(string); term != "" {
		if _, err := p.search(ctx, map[string]any{"userCode": term}); err != nil {
			observability.RequestLogger(ctx, p.logger).Warn("auto search failed",
				zap.String("page", PageUsers), zap.Error(err))
		}
	}
}

func (p *UsersPage) Unmount() {
	p.registry.UnregisterPage(PageUsers)
}

func (p *UsersPage) register() {
	p.mu.Lock()
	snapshot := map[string]any{
		"searchTerm":  p.searchTerm,
		"resultCount": len(p.results),
		"editMode":    p.editMode,
	}
	if p.loaded != nil {
		snapshot["loadedUserCode"] = p.loaded.UserCode
	}
	p.mu.Unlock()

	p.registry.RegisterPage(PageUsers, map[string]registry.ActionFunc{
		"search": p.search,
		"edit":   p.edit,
		"create": p.create,
	}, snapshot)
}

func denyNonAdmin(ctx context.Context) *model.ActionResult {
	if user := model.UserFrom(ctx); user != nil && !user.IsAdmin() {
		return &model.ActionResult{
			Success: false,
			Message: "You don't have permission to view user data. This requires admin access.",
		}
	}
	return nil
}

// search filters users by user code.
func (p *UsersPage) search(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	if denied := denyNonAdmin(ctx); denied != nil {
		return *denied, nil
	}

	code := firstNonEmpty(stringParam(params, "userCode"), stringParam(params, "searchTerm"))

	users, err := p.backend.Users(ctx)
	if err != nil {
		return model.ActionResult{}, err
	}

	matches := users
	if code != "" {
		lower := strings.ToLower(code)
		matches = nil
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.UserCode), lower) {
				matches = append(matches, u)
			}
		}
	}

	p.mu.Lock()
	p.searchTerm = code
	p.results = matches
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	msg := fmt.Sprintf("Found %d users.", len(matches))
	if code != "" {
		msg = fmt.Sprintf("Found %d users matching %q.", len(matches), code)
	}
	return model.ActionResult{
		Success: true,
		Message: msg,
		Data:    userMaps(matches),
		Fields:  map[string]any{"resultCount": len(matches)},
	}, nil
}

// edit resolves a user by user code.
func (p *UsersPage) edit(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	if denied := denyNonAdmin(ctx); denied != nil {
		return *denied, nil
	}

	code := firstNonEmpty(stringParam(params, "userCode"), stringParam(params, "searchTerm"))
	if code == "" {
		return model.ActionResult{
			Success: false,
			Message: "I need a user code to know which user to edit.",
		}, nil
	}

	users, err := p.backend.Users(ctx)
	if err != nil {
		return model.ActionResult{}, err
	}

	var found *backend.UserRecord
	for i := range users {
		if strings.EqualFold(users[i].UserCode, code) {
			found = &users[i]
			break
		}
	}
	if found == nil {
		return model.ActionResult{
			Success: false,
			Message: fmt.Sprintf("No user found matching %q.", code),
		}, nil
	}

	p.mu.Lock()
	p.loaded = found
	p.editMode = "edit"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Editing user %s.", found.UserCode),
		Fields:  map[string]any{"userCode": found.UserCode},
	}, nil
}

func (p *UsersPage) create(ctx context.Context, _ map[string]any) (model.ActionResult, error) {
	if denied := denyNonAdmin(ctx); denied != nil {
		return *denied, nil
	}

	p.mu.Lock()
	p.loaded = nil
	p.editMode = "create"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: "Opened a new user form.",
	}, nil
}

func userMaps(users []backend.UserRecord) []map[string]any {
	out := make([]map[string]any, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]any{
			"userCode": u.UserCode,
			"security": u.Security,
			"branchID": u.BranchID,
			"branch":   model.BranchName(u.BranchID),
			"country":  u.Country,
		})
	}
	return out
}
