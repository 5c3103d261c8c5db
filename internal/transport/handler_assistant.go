package transport

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/winbeat/assist/internal/assistant"
	"github.com/winbeat/assist/internal/chat"
	"github.com/winbeat/assist/internal/gemini"
	"github.com/winbeat/assist/model"
)

type queryRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

type queryResponse struct {
	SessionID  string                 `json:"session_id"`
	Message    string                 `json:"message"`
	Source     string                 `json:"source"`
	Data       []map[string]any       `json:"data,omitempty"`
	Navigation *model.Navigation      `json:"navigation,omitempty"`
	Workflow   *model.WorkflowOutcome `json:"workflow,omitempty"`
}

// handleQuery runs one chat turn: the query and the interpreter's reply
// are both recorded in the session before the response is written.
func handleQuery(interp *assistant.Interpreter, store *chat.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFrom(r.Context())
		if user == nil {
			WriteError(w, model.NewUnauthorizedError("Missing user context"))
			return
		}

		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid JSON body"))
			return
		}
		req.Query = strings.TrimSpace(req.Query)
		if req.Query == "" {
			WriteError(w, model.NewBadRequestError("query is required"))
			return
		}

		sessionID, err := store.Open(user.UserCode, req.SessionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		if _, err := store.AppendUser(user.UserCode, sessionID, req.Query); err != nil {
			WriteError(w, err)
			return
		}

		resp := interp.ProcessQuery(r.Context(), req.Query)

		if _, err := store.AppendAssistant(user.UserCode, sessionID, resp); err != nil {
			WriteError(w, err)
			return
		}

		WriteJSON(w, http.StatusOK, queryResponse{
			SessionID:  sessionID,
			Message:    resp.Message,
			Source:     resp.Source,
			Data:       resp.Data,
			Navigation: resp.Navigation,
			Workflow:   resp.Workflow,
		})
	}
}

// handleMessages returns the ordered messages of one session.
func handleMessages(store *chat.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := model.UserFrom(r.Context())
		if user == nil {
			WriteError(w, model.NewUnauthorizedError("Missing user context"))
			return
		}
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			WriteError(w, model.NewBadRequestError("session_id is required"))
			return
		}

		msgs, err := store.Messages(user.UserCode, sessionID)
		if err != nil {
			WriteError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"session_id": sessionID,
			"messages":   msgs,
		})
	}
}

// handleAssistantStatus reports the generative adapter's configuration.
func handleAssistantStatus(adapter *gemini.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, adapter.Status())
	}
}
