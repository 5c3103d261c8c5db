// Package workflow executes named multi-step action sequences that span
// page transitions: navigate, search, edit, download, create.
package workflow

import "github.com/winbeat/assist/model"

// Built-in workflow template ids.
const (
	WorkflowNavigateSearch     = "navigate-search"
	WorkflowNavigateCreate     = "navigate-create"
	WorkflowSearchEdit         = "search-edit"
	WorkflowSearchEditDownload = "search-edit-download"
)

// Templates returns the statically defined workflow templates keyed by id.
func Templates() map[string]model.WorkflowTemplate {
	return map[string]model.WorkflowTemplate{
		WorkflowNavigateSearch: {
			ID:          WorkflowNavigateSearch,
			Name:        "Navigate and Search",
			Description: "Open a page and search for a record",
			Steps: []model.StepDefinition{
				{ID: "navigate", Action: model.StepActionNavigate, Description: "Open the target page"},
				{ID: "search", Action: model.StepActionSearch, Description: "Search for the record"},
			},
		},
		WorkflowNavigateCreate: {
			ID:          WorkflowNavigateCreate,
			Name:        "Navigate and Create",
			Description: "Open a page and start a new record",
			Steps: []model.StepDefinition{
				{ID: "navigate", Action: model.StepActionNavigate, Description: "Open the target page"},
				{ID: "create", Action: model.StepActionCreate, Description: "Open a blank form"},
			},
		},
		WorkflowSearchEdit: {
			ID:          WorkflowSearchEdit,
			Name:        "Search and Edit",
			Description: "Open a page, search for a record, and edit it",
			Steps: []model.StepDefinition{
				{ID: "navigate", Action: model.StepActionNavigate, Description: "Open the target page"},
				{ID: "search", Action: model.StepActionSearch, Description: "Search for the record"},
				{ID: "edit", Action: model.StepActionEdit, Description: "Open the record for editing"},
			},
		},
		WorkflowSearchEditDownload: {
			ID:          WorkflowSearchEditDownload,
			Name:        "Search, Edit and Download",
			Description: "Open a page, search for a registration, edit it, and download the PDF",
			Steps: []model.StepDefinition{
				{ID: "navigate", Action: model.StepActionNavigate, Description: "Open the target page"},
				{ID: "search", Action: model.StepActionSearch, Description: "Search for the registration"},
				{ID: "edit", Action: model.StepActionEdit, Description: "Open the registration for editing"},
				{ID: "download", Action: model.StepActionDownloadPDF, Description: "Download the registration PDF"},
			},
		},
	}
}
