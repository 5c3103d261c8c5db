package gemini

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/winbeat/assist/model"
)

// maxContextJSON caps how much of a structured context value is inlined
// into the prompt.
const maxContextJSON = 100

// capabilityDescription tells the model what the assistant around it can
// do. Advisory only; nothing in the reply is parsed back.
const capabilityDescription = `You are the assistant inside the WinBeat administration app.
Staff use it to manage strata registrations, clients, and users.
You can describe data the app has already fetched and suggest commands such as
navigating to a page, searching for a record, or checking ABN validity.
Keep answers short and practical.`

// buildPrompt composes the system prompt: capability description, user
// identity and role, current page context, optional structured data
// summaries, and finally the query itself.
func buildPrompt(query string, user *model.User, pageCtx model.PageContext, contextData map[string]any) string {
	var sb strings.Builder
	sb.WriteString(capabilityDescription)
	sb.WriteString("\n\n")

	if user != nil {
		fmt.Fprintf(&sb, "Current user: %s (security level %d, %s)\n",
			user.UserCode, user.Security, user.SecurityLabel())
	}

	if pageCtx.Registered() {
		fmt.Fprintf(&sb, "Current page: %s\n", pageCtx.Page)
		if len(pageCtx.Actions) > 0 {
			fmt.Fprintf(&sb, "Available page actions: %s\n", strings.Join(pageCtx.Actions, ", "))
		}
		if len(pageCtx.Data) > 0 {
			fmt.Fprintf(&sb, "Page state: %s\n", summarizeValue(pageCtx.Data))
		}
	} else {
		sb.WriteString("No page is currently open.\n")
	}

	if len(contextData) > 0 {
		sb.WriteString("\nData context:\n")
		keys := make([]string, 0, len(contextData))
		for k := range contextData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, "- %s: %s\n", k, summarizeValue(contextData[k]))
		}
	}

	fmt.Fprintf(&sb, "\nUser query: %s", query)
	return sb.String()
}

// summarizeValue renders a context value compactly: collections become an
// item count, everything else becomes JSON truncated to maxContextJSON.
func summarizeValue(v any) string {
	switch c := v.(type) {
	case []map[string]any:
		return fmt.Sprintf("%d items available", len(c))
	case []any:
		return fmt.Sprintf("%d items available", len(c))
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(raw)
	if len(s) > maxContextJSON {
		s = s[:maxContextJSON] + "..."
	}
	return s
}
