package pages

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/winbeat/assist/internal/backend"
	"github.com/winbeat/assist/internal/observability"
	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/model"
)

var abnShape = regexp.MustCompile(`^\d{11}$`)

// RegistrationsPage is the controller for the manage-registrations page.
// It exposes search, edit, downloadPdf, and create to the assistant and
// mirrors the page's observable state into the registry snapshot.
type RegistrationsPage struct {
	registry *registry.Registry
	backend  *backend.Client
	logger   *zap.Logger

	mu         sync.Mutex
	searchTerm string
	results    []backend.RegistrationRecord
	loaded     *backend.RegistrationRecord
	editMode   string
}

// NewRegistrationsPage creates the registrations controller.
func NewRegistrationsPage(reg *registry.Registry, client *backend.Client, logger *zap.Logger) *RegistrationsPage {
	return &RegistrationsPage{registry: reg, backend: client, logger: logger}
}

func (p *RegistrationsPage) PageID() string { return PageRegistrations }
func (p *RegistrationsPage) Route() string  { return RouteRegistrations }

// Mount registers the page and runs an automatic search when the inbound
// navigation state carries a search term.
func (p *RegistrationsPage) Mount(ctx context.Context, state map[string]any) {
	p.mu.Lock()
	p.searchTerm = ""
	p.results = nil
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	if term, _ := state["searchTerm"].(string); term != "" {
		if _, err := p.search(ctx, map[string]any{"searchTerm": term}); err != nil {
			observability.RequestLogger(ctx, p.logger).Warn("auto search failed",
				zap.String("page", PageRegistrations), zap.Error(err))
		}
	}
}

// Unmount removes the page's registration.
func (p *RegistrationsPage) Unmount() {
	p.registry.UnregisterPage(PageRegistrations)
}

// register pushes the current snapshot into the registry. Called after
// every state change; registration is an idempotent overwrite.
func (p *RegistrationsPage) register() {
	p.mu.Lock()
	snapshot := map[string]any{
		"searchTerm":  p.searchTerm,
		"resultCount": len(p.results),
		"editMode":    p.editMode,
	}
	if p.loaded != nil {
		snapshot["loadedLedgerID"] = p.loaded.LedgerID
		snapshot["loadedCompany"] = p.loaded.CompanyName
	}
	p.mu.Unlock()

	p.registry.RegisterPage(PageRegistrations, map[string]registry.ActionFunc{
		"search":      p.search,
		"edit":        p.edit,
		"downloadPdf": p.downloadPDF,
		"create":      p.create,
	}, snapshot)
}

// search queries registrations by company, abn, or lin. A bare searchTerm
// is classified: 11 digits means ABN, anything else means company name.
func (p *RegistrationsPage) search(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	company, _ := params["company"].(string)
	abn, _ := params["abn"].(string)
	lin, _ := params["lin"].(string)

	term, _ := params["searchTerm"].(string)
	if company == "" && abn == "" && lin == "" && term != "" {
		if abnShape.MatchString(strings.ReplaceAll(term, " ", "")) {
			abn = strings.ReplaceAll(term, " ", "")
		} else {
			company = term
		}
	}

	results, err := p.backend.SearchRegistrations(ctx, company, abn, lin)
	if err != nil {
		return model.ActionResult{}, err
	}

	display := firstNonEmpty(company, abn, lin, term)
	p.mu.Lock()
	p.searchTerm = display
	p.results = results
	p.loaded = nil
	p.editMode = ""
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: searchMessage(len(results), display),
		Data:    registrationMaps(results),
		Fields:  map[string]any{"resultCount": len(results)},
	}, nil
}

// edit resolves a registration by company name from the last search
// results, falling back to a fresh backend search.
func (p *RegistrationsPage) edit(ctx context.Context, params map[string]any) (model.ActionResult, error) {
	target := firstNonEmpty(
		stringParam(params, "companyName"),
		stringParam(params, "searchTerm"),
	)
	if target == "" {
		return model.ActionResult{
			Success: false,
			Message: "I need a company name to know which registration to edit.",
		}, nil
	}

	record := p.findInResults(target)
	if record == nil {
		results, err := p.backend.SearchRegistrations(ctx, target, "", "")
		if err != nil {
			return model.ActionResult{}, err
		}
		for i := range results {
			if matchesCompany(results[i].CompanyName, target) {
				record = &results[i]
				break
			}
		}
	}
	if record == nil {
		return model.ActionResult{
			Success: false,
			Message: fmt.Sprintf("No registration found matching %q.", target),
		}, nil
	}

	p.mu.Lock()
	p.loaded = record
	p.editMode = "edit"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Editing registration for %s.", record.CompanyName),
		Fields:  map[string]any{"ledgerID": record.LedgerID},
	}, nil
}

// downloadPDF downloads the loaded registration as a PDF. A single search
// result counts as loaded.
func (p *RegistrationsPage) downloadPDF(ctx context.Context, _ map[string]any) (model.ActionResult, error) {
	p.mu.Lock()
	record := p.loaded
	if record == nil && len(p.results) == 1 {
		record = &p.results[0]
	}
	p.mu.Unlock()

	if record == nil {
		return model.ActionResult{
			Success: false,
			Message: "No registration is loaded. Search for one first, then download.",
		}, nil
	}

	fileName := fmt.Sprintf("registration-%d.pdf", record.LedgerID)
	observability.RequestLogger(ctx, p.logger).Info("registration pdf download",
		zap.String("file", fileName))

	return model.ActionResult{
		Success: true,
		Message: fmt.Sprintf("Downloading %s for %s.", fileName, record.CompanyName),
		Fields:  map[string]any{"fileName": fileName},
	}, nil
}

// create opens a blank registration form.
func (p *RegistrationsPage) create(_ context.Context, _ map[string]any) (model.ActionResult, error) {
	p.mu.Lock()
	p.loaded = nil
	p.editMode = "create"
	p.mu.Unlock()
	p.register()

	return model.ActionResult{
		Success: true,
		Message: "Opened a new registration form.",
	}, nil
}

func (p *RegistrationsPage) findInResults(target string) *backend.RegistrationRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.results {
		if matchesCompany(p.results[i].CompanyName, target) {
			return &p.results[i]
		}
	}
	return nil
}

func registrationMaps(records []backend.RegistrationRecord) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, r := range records {
		out = append(out, map[string]any{
			"companyName": r.CompanyName,
			"companyABN":  r.CompanyABN,
			"ledgerID":    r.LedgerID,
			"lin":         r.LIN,
			"expiryDate":  r.ExpiryDate,
		})
	}
	return out
}

func matchesCompany(name, target string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(target))
}

func searchMessage(count int, term string) string {
	if term == "" {
		return fmt.Sprintf("Found %d registrations.", count)
	}
	return fmt.Sprintf("Found %d registrations matching %q.", count, term)
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
