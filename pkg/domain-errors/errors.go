// Package domainerrors provides coded domain errors shared across services.
// It is conventionally imported as dErrors.
//
// Services construct these at the point where a business rule fails; transport
// layers translate codes to HTTP statuses without inspecting error strings.
// Infrastructure layers should return pkg/platform/sentinel errors instead and
// let the owning service wrap them with a code.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for propagation policy and HTTP translation.
type Code string

const (
	// CodeNotFound: lead, alert, or metric does not exist.
	CodeNotFound Code = "not_found"
	// CodePreconditionNotMet: a stage gating condition is unsatisfied. Recoverable;
	// the next Advance re-evaluates from the same stage.
	CodePreconditionNotMet Code = "precondition_not_met"
	// CodeComplianceViolation: a consent or PHI-channel rule was broken. Blocks the
	// specific operation and is never downgraded to a warning.
	CodeComplianceViolation Code = "compliance_violation"
	// CodeCollaboratorUnavailable: transient failure calling an external service
	// (document storage, e-sign, notification). Logged and retried later.
	CodeCollaboratorUnavailable Code = "collaborator_unavailable"
	// CodeStoreFailure: the lead store could not load or save a record. Fatal for
	// the current operation only.
	CodeStoreFailure Code = "store_failure"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal_error"
)

// DomainError carries a code, a human-readable message, and an optional cause.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// New constructs a DomainError with the given code and message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf constructs a DomainError with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a domain error code to an HTTP status for transport layers.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodePreconditionNotMet:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeComplianceViolation:
		return http.StatusForbidden
	case CodeConflict:
		return http.StatusConflict
	case CodeCollaboratorUnavailable:
		return http.StatusBadGateway
	case CodeStoreFailure, CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
