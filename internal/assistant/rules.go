package assistant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/model"
)

// searchTermPattern captures the subject of a search command, stopping
// before a trailing entity word so "search for ABC Strata registration"
// yields "ABC Strata". Applied to the raw query to preserve case.
var searchTermPattern = regexp.MustCompile(`(?i)(?:search for|find|look for)\s+(.+?)(?:\s+registrations?|\s+clients?|\s+users?|\s*$)`)

// editTargetPattern captures the record an edit command names, with the
// same trailing-noun trim. Applied to the raw query to preserve case.
var editTargetPattern = regexp.MustCompile(`(?i)edit\s+(.+?)(?:\s+registrations?|\s+clients?|\s+users?|\s*$)`)

var compactDigits = regexp.MustCompile(`^\d{11}$`)

// intentRule maps trigger phrases to a handler. Rules run in order; the
// first rule whose trigger appears in the query wins.
type intentRule struct {
	name     string
	triggers []string
	handle   func(ctx context.Context, in *Interpreter, query string, user *model.User) model.AssistantResponse
}

var intentRules = []intentRule{
	{
		name:     "navigation",
		triggers: []string{"go to", "navigate to", "open"},
		handle:   handleNavigation,
	},
	{
		name:     "search",
		triggers: []string{"search for", "find", "look for"},
		handle:   handleSearch,
	},
	{
		name:     "analysis",
		triggers: []string{"analyze", "analyse", "check", "wrong", "invalid", "expir", "missing", "admin", "security"},
		handle:   handleAnalysis,
	},
	{
		name:     "count",
		triggers: []string{"how many", "count", "total"},
		handle:   handleCount,
	},
}

func (in *Interpreter) applyRules(ctx context.Context, query string, user *model.User) (model.AssistantResponse, bool) {
	q := strings.ToLower(query)
	for _, rule := range intentRules {
		if !containsAny(q, rule.triggers...) {
			continue
		}
		if in.metrics != nil {
			in.metrics.RecordRuleMatch(rule.name)
		}
		return rule.handle(ctx, in, query, user), true
	}
	return model.AssistantResponse{}, false
}

func containsAny(q string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

// tryPageAction executes a direct command against the registrations page
// when it is the current page. Other pages have no shortcut phrasing; their
// actions run through navigation rules or workflows.
func (in *Interpreter) tryPageAction(ctx context.Context, query string) (model.AssistantResponse, bool) {
	pageCtx := in.registry.PageContext()
	if pageCtx.Page != pages.PageRegistrations {
		return model.AssistantResponse{}, false
	}
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "download") && strings.Contains(q, "pdf"):
		return in.runPageAction(ctx, pageCtx.Generation, "downloadPdf", nil), true
	case strings.Contains(q, "edit"):
		params := map[string]any{}
		if term := extractEditTarget(query); term != "" {
			params["companyName"] = term
		}
		return in.runPageAction(ctx, pageCtx.Generation, "edit", params), true
	case strings.Contains(q, "search") || strings.Contains(q, "find"):
		term := extractSearchTerm(query)
		if term == "" {
			// "search" or "show all registrations" on the page lists
			// everything.
			return in.runPageAction(ctx, pageCtx.Generation, "search", nil), true
		}
		return in.runPageAction(ctx, pageCtx.Generation, "search", searchFieldParams(term)), true
	}
	return model.AssistantResponse{}, false
}

// runPageAction dispatches through the generation-checked registry call so
// a page swap between reading the page context and executing rejects with
// a STALE_PAGE error instead of acting on a page the user never saw.
func (in *Interpreter) runPageAction(ctx context.Context, generation, action string, params map[string]any) model.AssistantResponse {
	start := time.Now()
	result, err := in.registry.ExecuteActionChecked(ctx, generation, action, params)

	status := "ok"
	if err != nil || !result.Success {
		status = "error"
	}
	if in.metrics != nil {
		in.metrics.RecordPageAction(pages.PageRegistrations, action, status, time.Since(start))
	}

	if err != nil {
		return model.AssistantResponse{
			Message: safeMessage(err),
			Source:  model.SourcePageActionError,
		}
	}
	source := model.SourcePageAction
	if !result.Success {
		source = model.SourcePageActionError
	}
	return model.AssistantResponse{
		Message: result.Message,
		Source:  source,
		Data:    result.Data,
	}
}

// extractSearchTerm pulls the search subject out of the raw query,
// preserving the user's casing.
func extractSearchTerm(query string) string {
	m := searchTermPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// extractEditTarget pulls the record name out of an edit command,
// preserving the user's casing. Empty when the command names no record.
func extractEditTarget(query string) string {
	m := editTargetPattern.FindStringSubmatch(query)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// searchFieldParams picks the registration search field for a bare term:
// an 11-digit value is an ABN, a query mentioning "lin" targets the LIN
// field, anything else matches on company name.
func searchFieldParams(term string) map[string]any {
	compact := strings.ReplaceAll(term, " ", "")
	if compactDigits.MatchString(compact) {
		return map[string]any{"abn": compact}
	}
	return map[string]any{"company": term}
}

// Navigation destinations in matching order. Client mentions outrank
// registration mentions, and "manage" distinguishes the registration list
// from the creation form.
func handleNavigation(ctx context.Context, in *Interpreter, query string, user *model.User) model.AssistantResponse {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "client"):
		return in.navigate(ctx, "Taking you to the Clients page.", pages.RouteClients, nil)
	case strings.Contains(q, "registration") && strings.Contains(q, "manage"):
		return in.navigate(ctx, "Taking you to Manage Registrations.", pages.RouteRegistrations, nil)
	case strings.Contains(q, "registration"):
		return in.navigate(ctx, "Taking you to Create Registry.", pages.RouteCreateRegistry, nil)
	case strings.Contains(q, "user"):
		if !user.IsAdmin() {
			return model.AssistantResponse{
				Message: "You don't have permission to access the Users page. This requires admin access.",
				Source:  model.SourceRuleBased,
			}
		}
		return in.navigate(ctx, "Taking you to the Users page.", pages.RouteUsers, nil)
	case strings.Contains(q, "home") || strings.Contains(q, "dashboard"):
		return in.navigate(ctx, "Taking you to the Home page.", pages.RouteHome, nil)
	default:
		return model.AssistantResponse{
			Message: "I can take you to Clients, Manage Registrations, Create Registry, Users, or Home. Where would you like to go?",
			Source:  model.SourceRuleBased,
		}
	}
}

// handleSearch routes a search command to the right page with the term
// pre-seeded, so the page auto-searches on mount.
func handleSearch(ctx context.Context, in *Interpreter, query string, user *model.User) model.AssistantResponse {
	term := extractSearchTerm(query)
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "registration"):
		return in.navigate(ctx,
			"Searching registrations for \""+term+"\".",
			pages.RouteRegistrations,
			map[string]any{"searchTerm": term})
	case strings.Contains(q, "client"):
		return in.navigate(ctx,
			"Searching clients for \""+term+"\".",
			pages.RouteClients,
			map[string]any{"searchTerm": term})
	default:
		if term == "" {
			return model.AssistantResponse{
				Message: "What would you like to search for? Try 'search for ABC Strata registration' or 'find Smith client'.",
				Source:  model.SourceRuleBased,
			}
		}
		return model.AssistantResponse{
			Message: "Should I search registrations or clients for \"" + term + "\"?",
			Source:  model.SourceRuleBased,
		}
	}
}
