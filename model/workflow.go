package model

import "time"

// Workflow step status constants.
const (
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
	StepStatusSkipped   = "skipped"
)

// Workflow step action names.
const (
	StepActionNavigate    = "navigate"
	StepActionSearch      = "search"
	StepActionEdit        = "edit"
	StepActionDownloadPDF = "downloadPdf"
	StepActionCreate      = "create"
)

// WorkflowTemplate is a named, statically defined multi-step sequence.
// Steps are declarative; parameters are supplied at execution time.
type WorkflowTemplate struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Steps       []StepDefinition `json:"steps"`
}

// StepDefinition is one declarative step of a workflow template.
type StepDefinition struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// StepResult records the outcome of a single executed step.
type StepResult struct {
	StepID  string           `json:"step"`
	Action  string           `json:"action"`
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Data    []map[string]any `json:"data,omitempty"`
}

// WorkflowParameters holds the intent parameters extracted from a query and
// fed into workflow execution.
type WorkflowParameters struct {
	Page       string `json:"page,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
	Company    string `json:"company,omitempty"`
	ABN        string `json:"abn,omitempty"`
	LIN        string `json:"lin,omitempty"`
	UserCode   string `json:"userCode,omitempty"`
	ClientName string `json:"clientName,omitempty"`

	// SkipNavigation marks the single-page workflow variant, derived from
	// the interpreter's page-action shortcut.
	SkipNavigation bool `json:"skipNavigation,omitempty"`

	// DelayBetweenSteps overrides the engine's inter-step settle delay when
	// positive.
	DelayBetweenSteps time.Duration `json:"-"`
}

// WorkflowMatch is the result of identifying a workflow intent in a query.
type WorkflowMatch struct {
	WorkflowID     string  `json:"workflowId"`
	Confidence     float64 `json:"confidence"`
	SkipNavigation bool    `json:"skipNavigation,omitempty"`
}

// WorkflowOutcome is the full result of one workflow execution, success or
// failure, including the per-step trace.
type WorkflowOutcome struct {
	Success        bool         `json:"success"`
	WorkflowID     string       `json:"workflowId"`
	WorkflowName   string       `json:"workflowName"`
	Message        string       `json:"message,omitempty"`
	Steps          []StepResult `json:"steps"`
	TotalSteps     int          `json:"totalSteps"`
	CompletedSteps int          `json:"completedSteps"`
	FailedStep     string       `json:"failedStep,omitempty"`
	ErrorMessage   string       `json:"errorMessage,omitempty"`
}

// WorkflowExecution is the history record of one executeWorkflow call.
type WorkflowExecution struct {
	ID         string             `json:"id"`
	WorkflowID string             `json:"workflowId"`
	Parameters WorkflowParameters `json:"parameters"`
	StartTime  time.Time          `json:"startTime"`
	EndTime    time.Time          `json:"endTime"`
	Outcome    WorkflowOutcome    `json:"outcome"`
}
