package workflow

import (
	"regexp"
	"strings"

	"github.com/winbeat/assist/internal/pages"
	"github.com/winbeat/assist/model"
)

// patternRule is one row of the workflow identification table. Rules are
// tested in order; the first whose predicate holds wins. This table is
// deliberately independent of the interpreter's intent rules and the
// generative adapter's simple-action list.
type patternRule struct {
	workflowID     string
	confidence     float64
	skipNavigation bool
	match          func(q string) bool
}

func containsAny(q string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(q, p) {
			return true
		}
	}
	return false
}

var patternRules = []patternRule{
	{
		workflowID: WorkflowSearchEditDownload,
		confidence: 0.9,
		match: func(q string) bool {
			return strings.Contains(q, "go to") &&
				containsAny(q, "search", "find") &&
				strings.Contains(q, "download")
		},
	},
	{
		workflowID: WorkflowSearchEdit,
		confidence: 0.9,
		match: func(q string) bool {
			return strings.Contains(q, "go to") &&
				containsAny(q, "search", "find") &&
				strings.Contains(q, "edit")
		},
	},
	{
		workflowID: WorkflowNavigateSearch,
		confidence: 0.85,
		match: func(q string) bool {
			return strings.Contains(q, "go to") && containsAny(q, "search", "find")
		},
	},
	{
		workflowID: WorkflowNavigateCreate,
		confidence: 0.85,
		match: func(q string) bool {
			return strings.Contains(q, "go to") && containsAny(q, "create", "add")
		},
	},
	{
		// Single-page phrasing without navigation: "search for X and then
		// download" while already on the page.
		workflowID:     WorkflowSearchEditDownload,
		confidence:     0.8,
		skipNavigation: true,
		match: func(q string) bool {
			return !strings.Contains(q, "go to") &&
				containsAny(q, "search", "find") &&
				containsAny(q, "edit", "download", "and then")
		},
	},
}

// IdentifyWorkflow matches the query against the workflow pattern table.
// Returns nil when no multi-step intent is present, leaving the query to
// the single-intent rule handlers.
func IdentifyWorkflow(query string) *model.WorkflowMatch {
	q := strings.ToLower(query)
	for _, rule := range patternRules {
		if rule.match(q) {
			return &model.WorkflowMatch{
				WorkflowID:     rule.workflowID,
				Confidence:     rule.confidence,
				SkipNavigation: rule.skipNavigation,
			}
		}
	}
	return nil
}

// Search term extraction alternatives, tried in order. Each stops at a
// joining " and " or end of string. Applied to the raw query so the
// extracted term keeps the user's casing.
var termPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)search\s+for\s+(.+?)(?:\s+and\s+|\s*$)`),
	regexp.MustCompile(`(?i)find\s+(.+?)(?:\s+and\s+|\s*$)`),
	regexp.MustCompile(`(?i)look\s+for\s+(.+?)(?:\s+and\s+|\s*$)`),
}

var (
	allDigits = regexp.MustCompile(`^\d{11}$`)
	linWord   = regexp.MustCompile(`\blin\b`)
)

// ExtractParameters pulls a target page and search criteria out of a
// workflow query. The extracted term is classified as an ABN (11 digits),
// a LIN (when the query mentions lin), or a page-appropriate name field.
func ExtractParameters(query string) model.WorkflowParameters {
	q := strings.ToLower(query)

	params := model.WorkflowParameters{Page: targetPage(q)}

	var term string
	for _, re := range termPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			term = strings.TrimSpace(m[1])
			break
		}
	}
	// Trailing entity words are navigation noise, not part of the term.
	for _, suffix := range []string{" registration", " registrations", " client", " clients", " user", " users"} {
		if strings.HasSuffix(strings.ToLower(term), suffix) {
			term = strings.TrimSpace(term[:len(term)-len(suffix)])
		}
	}
	if term == "" {
		return params
	}
	params.SearchTerm = term

	compact := strings.ReplaceAll(term, " ", "")
	switch {
	case allDigits.MatchString(compact):
		params.ABN = compact
	case linWord.MatchString(q):
		params.LIN = term
	default:
		switch params.Page {
		case pages.PageClients:
			params.ClientName = term
		case pages.PageUsers:
			params.UserCode = term
		default:
			params.Company = term
		}
	}
	return params
}

// targetPage resolves the page a workflow query is about. Registration
// phrasing wins over client and user phrasing. Returns empty when the
// query names no page; the navigate step fails on a missing page.
func targetPage(q string) string {
	switch {
	case containsAny(q, "manage registration", "registration page", "registration"):
		return pages.PageRegistrations
	case strings.Contains(q, "client"):
		return pages.PageClients
	case strings.Contains(q, "user"):
		return pages.PageUsers
	default:
		return ""
	}
}
