package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied means the actor lacks a capability the operation requires.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrLotNotFound means no lot exists with the requested identifier.
	ErrLotNotFound = errors.New("lot not found")
	// ErrLotNotAvailable means the lot's status does not allow the requested assignment.
	ErrLotNotAvailable = errors.New("lot not available")
	// ErrInvalidTransition means the status change is not legal from the current status.
	ErrInvalidTransition = errors.New("invalid lot status transition")
	// ErrConcurrentAssignmentConflict means another writer changed the lot since it was read.
	ErrConcurrentAssignmentConflict = errors.New("concurrent assignment conflict")
	// ErrContractNotFound means no contract exists with the requested identifier.
	ErrContractNotFound = errors.New("contract not found")
	// ErrClientNotFound is returned by client directories for unknown identifiers.
	ErrClientNotFound = errors.New("client not found")
	// ErrContractNotActive means the contract was already converted, expired or completed.
	ErrContractNotActive = errors.New("contract not active")
)

// IsRetryable reports whether err is an optimistic-concurrency loss. Callers
// retrying must re-read the lot and re-run validation, not resubmit blindly.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentAssignmentConflict)
}

// FieldError is one field-level validation problem.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Field error codes.
const (
	CodeRequired  = "required"
	CodeForbidden = "forbidden"
	CodeRange     = "out_of_range"
	CodeFormat    = "invalid_format"
	CodePrecision = "precision"
	CodeNotFound  = "not_found"
	CodeSequence  = "date_order"
	CodePast      = "in_past"
)

// ValidationError carries every problem found in a set of terms.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fields returns the offending field names in reporting order.
func (e *ValidationError) Fields() []string {
	names := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		names = append(names, fe.Field)
	}
	return names
}

// Has reports whether field appears among the errors.
func (e *ValidationError) Has(field string) bool {
	for _, fe := range e.Errors {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From    LotStatus
	Trigger Trigger
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s on %s", ErrInvalidTransition, e.Trigger, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
