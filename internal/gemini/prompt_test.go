package gemini

import (
	"strings"
	"testing"

	"github.com/winbeat/assist/model"
)

func TestBuildPromptIncludesUserAndPage(t *testing.T) {
	user := &model.User{UserCode: "MJONES", Security: 1}
	pageCtx := model.PageContext{
		Page:    "manage-registrations",
		Actions: []string{"downloadPdf", "edit", "search"},
		Data:    map[string]any{"searchTerm": "ABC"},
	}

	prompt := buildPrompt("what can I do here", user, pageCtx, nil)

	for _, want := range []string{
		"MJONES",
		"security level 1",
		"manage-registrations",
		"downloadPdf, edit, search",
		"User query: what can I do here",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildPromptWithoutPage(t *testing.T) {
	prompt := buildPrompt("hello", nil, model.PageContext{}, nil)
	if !strings.Contains(prompt, "No page is currently open") {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestSummarizeValue(t *testing.T) {
	records := []map[string]any{{"a": 1}, {"a": 2}, {"a": 3}}
	if got := summarizeValue(records); got != "3 items available" {
		t.Errorf("summarizeValue(records) = %q", got)
	}

	long := strings.Repeat("x", 200)
	got := summarizeValue(map[string]any{"v": long})
	if !strings.HasSuffix(got, "...") {
		t.Errorf("long value not truncated: %q", got)
	}
	if len(got) > maxContextJSON+3 {
		t.Errorf("summary length = %d", len(got))
	}
}

func TestBuildPromptContextDataOrderStable(t *testing.T) {
	data := map[string]any{
		"zeta":  []any{1, 2},
		"alpha": []any{1},
	}
	prompt := buildPrompt("q", nil, model.PageContext{}, data)

	alphaIdx := strings.Index(prompt, "alpha")
	zetaIdx := strings.Index(prompt, "zeta")
	if alphaIdx == -1 || zetaIdx == -1 || alphaIdx > zetaIdx {
		t.Errorf("context keys not sorted:\n%s", prompt)
	}
}
