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

// ClientsPage is the controller for the clients listing. Search filters
// client-side because the clients endpoint returns the full collection.
type ClientsPage struct {
	registry *registry.Registry
	backend  *backend.Client
	logger   *zap.Logger

	mu         sync.Mutex
	searchTerm string
	results    []backend.ClientRecord
	loaded     *backend.ClientRecord
	editMode   string
}

// NewClientsPage creates the clients controller.
func NewClientsPage(reg *registry.Registry, client *backend.Client, logger *zap.Logger) *ClientsPage {
	return &ClientsPage{registry: reg, backend: client, logger: logger}
}

func (p *ClientsPage) PageID() string { return PageClients }
func (p *ClientsPage) Route() string  { return RouteClients }

func (p *ClientsPage) Mount(ctx context.Context, state map[string]any) {
	p.mu.Lock()
	p.searchTerm = ""
	p.results = nil
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	if term, _ := state["searchTerm"].(string); term != "" {
		if _, err := p.search(ctx, map[string]any{"term": term}); err != nil {
			observability.RequestLogger(ctx, p.logger).Warn("auto search failed",
				zap.String("page", PageClients), zap.Error(err))
		}
	}
}

func (p *ClientsPage) Unmount() {
	p.registry.UnregisterPage(PageClients)
}

func (p *ClientsPage) register() {
	p.mu.Lock()
	snapshot := map[string]any{
		"searchTerm":  p.searchTerm,
		"resultCount": len(p.results),
		"editMode":    p.editMode,
	}
	if p.loaded != nil {
		snapshot["loadedClientId"] = p.loaded.ClientID
		snapshot["loadedClient"] = p.loaded.Name
	}
	p.mu.Unlock()

	p.registry.RegisterPage(PageClients, map[string]registry.ActionFunc{
		"search": p.search,
		"edit":   p.edit,
		"create": p.create,
	}, snapshot)
}

// search filters clients by name, code, or ABN. An empty term returns all.
func (p *ClientsPage) search(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	term := firstNonEmpty(stringParam(params, "term"), stringParam(params, "searchTerm"))

	clients, err := p.backend.Clients(ctx)
	if err != nil {
		return model.ActionResult{}, err
	}

	matches := clients
	if term != "" {
		lower := strings.ToLower(term)
		matches = nil
		for _, c := range clients {
			if strings.Contains(strings.ToLower(c.Name), lower) ||
				strings.Contains(strings.ToLower(c.Code), lower) ||
				strings.Contains(c.ABN, term) {
				matches = append(matches, c)
			}
		}
	}

	p.mu.Lock()
	p.searchTerm = term
	p.results = matches
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	msg := fmt.Sprintf("Found %d clients.", len(matches))
	if term != "" {
		msg = fmt.Sprintf("Found %d clients matching %q.", len(matches), term)
	}
	return model.ActionResult{
		Success: true,
		Message: msg,
		Data:    clientMaps(matches),
		Fields:  map[string]any{"resultCount": len(matches)},
	}, nil
}

// edit resolves a client by id, code, or name.
func (p *ClientsPage) edit(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	clientID := intParam(params, "clientId")
	code := stringParam(params, "clientCode")
	name := firstNonEmpty(stringParam(params, "clientName"), stringParam(params, "searchTerm"))

	if clientID == 0 && code == "" && name == "" {
		return model.ActionResult{
			Success: false,
			Message: "I need a client name, code, or id to know which client to edit.",
		}, nil
	}

	clients, err := p.backend.Clients(ctx)
	if err != nil {
		return model.ActionResult{}, err
	}

	var found *backend.ClientRecord
	for i := range clients {
		c := &clients[i]
		switch {
		case clientID != 0 && c.ClientID == clientID,
			code != "" && strings.EqualFold(c.Code, code),
			name != "" && strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)):
			found = c
		}
		if found != nil {
			break
		}
	}
	if found == nil {
		target := firstNonEmpty(name, code, fmt.Sprintf("%d", clientID))
		return model.ActionResult{
			Success: false,
			Message: fmt.Sprintf("No client found matching %q.", target),
		}, nil
	}

	p.mu.Lock()
	p.loaded = found
	p.editMode = "edit"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Editing client %s.", found.Name),
		Fields:  map[string]any{"clientId": found.ClientID},
	}, nil
}

func (p *ClientsPage) create(_ context.Context, _ map[string]any) (model.ActionResult, error) {
	p.mu.Lock()
	p.loaded = nil
	p.editMode = "create"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: "Opened a new client form.",
	}, nil
}

func clientMaps(clients []backend.ClientRecord) []map[string]any {
	out := make([]map[string]any, 0, len(clients))
	for _, c := range clients {
		out = append(out, map[string]any{
			"name":     c.Name,
			"code":     c.Code,
			"abn":      c.ABN,
			"clientID": c.ClientID,
		})
	}
	return out
}

func intParam(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
