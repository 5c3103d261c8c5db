package model

import "time"

// Response source tags. Every assistant reply carries the tag of the
// component that produced it.
const (
	SourceRuleBased        = "rule-based"
	SourceGemini           = "gemini"
	SourceGeminiContextual = "gemini-contextual"
	SourcePageAction       = "page-action"
	SourcePageActionError  = "page-action-error"
	SourceWorkflow         = "workflow"
	SourceSystem           = "system"
	SourceError            = "error"
	SourceFallback         = "fallback"
)

// Chat message types.
const (
	MessageTypeUser      = "user"
	MessageTypeAssistant = "assistant"
)

// ActionResult is returned by every page action and surfaced to the chat
// layer. success=false implies Message explains the failure; lower failures
// are caught and converted rather than propagated past this boundary.
type ActionResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data,omitempty"`
	// Fields carries action-specific values such as resultCount, clientId,
	// or fileName.
	Fields map[string]any `json:"fields,omitempty"`
}

// Field returns the named action-specific field, or nil.
func (r ActionResult) Field(name string) any {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// Navigation describes a routing side effect the chat surface should apply
// (and that the in-process navigator applies on the server side).
type Navigation struct {
	Path  string         `json:"path"`
	State map[string]any `json:"state,omitempty"`
}

// AssistantResponse is the structured reply of the command interpreter.
type AssistantResponse struct {
	Message    string           `json:"message"`
	Source     string           `json:"source"`
	Data       []map[string]any `json:"data,omitempty"`
	Navigation *Navigation      `json:"navigation,omitempty"`
	Workflow   *WorkflowOutcome `json:"workflow,omitempty"`
}

// ChatMessage is one turn in a conversation. Messages are immutable once
// appended; insertion order is display order.
type ChatMessage struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Data      []map[string]any `json:"data,omitempty"`
	Source    string           `json:"source,omitempty"`
}

// PageContext is the registry's view of the current page, consumed by the
// generative fallback's prompt construction and by the interpreter's
// page-action branch. Page is empty when no page is registered.
type PageContext struct {
	Page       string         `json:"page"`
	Actions    []string       `json:"actions"`
	Data       map[string]any `json:"data"`
	Generation string         `json:"generation,omitempty"`
}

// Registered returns true when a page is currently registered.
func (pc PageContext) Registered() bool {
	return pc.Page != ""
}
