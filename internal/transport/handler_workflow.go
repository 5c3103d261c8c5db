package transport

import (
	"net/http"

	"github.com/winbeat/assist/internal/registry"
	"github.com/winbeat/assist/internal/workflow"
)

// handleWorkflowList returns the available workflow templates.
func handleWorkflowList(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"workflows": engine.Templates(),
		})
	}
}

// handleWorkflowHistory returns completed executions, newest first.
func handleWorkflowHistory(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{
			"executions": engine.History(),
		})
	}
}

// handleWorkflowHistoryClear drops the execution history.
func handleWorkflowHistoryClear(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.ClearHistory()
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleWorkflowCurrent reports the in-flight execution, if any.
func handleWorkflowCurrent(engine *workflow.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exec, active := engine.Current()
		body := map[string]any{"active": active}
		if active {
			body["execution"] = exec
		}
		WriteJSON(w, http.StatusOK, body)
	}
}

// handlePageContext returns the registry's view of the current page.
func handlePageContext(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, reg.PageContext())
	}
}
