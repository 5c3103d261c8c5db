package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest       = "BAD_REQUEST"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrValidationError  = "VALIDATION_ERROR"
	ErrInternalError    = "INTERNAL_ERROR"
	ErrUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrUpstreamTimeout  = "UPSTREAM_TIMEOUT"
)

// Assistant-specific error codes.
const (
	ErrNoPageRegistered = "NO_PAGE_REGISTERED"
	ErrActionNotFound   = "ACTION_NOT_FOUND"
	ErrStalePage        = "STALE_PAGE"
	ErrWorkflowBusy     = "WORKFLOW_BUSY"
	ErrWorkflowNotFound = "WORKFLOW_NOT_FOUND"
	ErrUnknownStep      = "UNKNOWN_STEP"
)

// ErrorEnvelope is the standard error shape surfaced by the assistant
// service. It implements the error interface.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR.
func NewValidationError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrValidationError, Message: msg}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}

// NewUpstreamFailureError returns an UPSTREAM_FAILURE error describing a
// failed call to the WinBeat API or the generative text service.
func NewUpstreamFailureError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUpstreamFailure, Message: msg}
}

// NewUpstreamTimeoutError returns an UPSTREAM_TIMEOUT error.
func NewUpstreamTimeoutError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUpstreamTimeout,
		Message: "The backend service did not respond in time",
	}
}

// NewNoPageRegisteredError returns a NO_PAGE_REGISTERED error.
func NewNoPageRegisteredError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrNoPageRegistered,
		Message: "No page is currently registered",
	}
}

// NewActionNotFoundError returns an ACTION_NOT_FOUND error for the given
// action on the given page.
func NewActionNotFoundError(action, pageID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrActionNotFound,
		Message: fmt.Sprintf("Action %q not found on page %q", action, pageID),
	}
}

// NewStalePageError returns a STALE_PAGE error indicating the page
// registration changed since the caller observed it.
func NewStalePageError(pageID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrStalePage,
		Message: fmt.Sprintf("Registration for page %q changed since it was observed", pageID),
	}
}

// NewWorkflowBusyError returns a WORKFLOW_BUSY error.
func NewWorkflowBusyError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrWorkflowBusy,
		Message: "Another workflow is currently executing. Please wait.",
	}
}

// NewWorkflowNotFoundError returns a WORKFLOW_NOT_FOUND error.
func NewWorkflowNotFoundError(workflowID string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrWorkflowNotFound,
		Message: fmt.Sprintf("Unknown workflow: %s", workflowID),
	}
}

// NewUnknownStepError returns an UNKNOWN_STEP error.
func NewUnknownStepError(action string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnknownStep,
		Message: fmt.Sprintf("Unknown action: %s", action),
	}
}
