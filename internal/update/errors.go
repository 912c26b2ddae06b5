package update

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes workflow defects.
type ErrorCode string

const (
	// ErrCodeMissingAuthorizer indicates a workflow built without an Authorizer.
	ErrCodeMissingAuthorizer ErrorCode = "MISSING_AUTHORIZER"

	// ErrCodeMissingPersister indicates a workflow built without a Persister.
	ErrCodeMissingPersister ErrorCode = "MISSING_PERSISTER"

	// ErrCodeMissingKind indicates a workflow built without a record kind.
	ErrCodeMissingKind ErrorCode = "MISSING_KIND"

	// ErrCodeUninitialized indicates a zero Workflow used without New.
	ErrCodeUninitialized ErrorCode = "UNINITIALIZED"

	// ErrCodeUnknownMethod indicates the configured persistence method does
	// not exist on the record or has the wrong signature.
	ErrCodeUnknownMethod ErrorCode = "UNKNOWN_METHOD"

	// ErrCodeRecordError indicates the Persister failed and the failure was
	// escalated by OnUpdateRecordError.
	ErrCodeRecordError ErrorCode = "RECORD_ERROR"
)

// ConfigurationError is a programming defect in how a workflow was
// assembled. It is never reported as an Outcome.
type ConfigurationError struct {
	Code    ErrorCode
	Kind    string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// RecordError wraps an unexpected persistence failure that was escalated
// out of the workflow.
type RecordError struct {
	Kind     string
	RecordID string
	Err      error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: update %s %s: %v", ErrCodeRecordError, e.Kind, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsRecordError returns true if err is or wraps a RecordError.
func IsRecordError(err error) bool {
	var re *RecordError
	return errors.As(err, &re)
}

func missingAuthorizer(kind string) *ConfigurationError {
	return &ConfigurationError{
		Code:    ErrCodeMissingAuthorizer,
		Kind:    kind,
		Message: "workflow has no Authorizer; every update workflow must decide who may update",
	}
}

func missingPersister(kind string) *ConfigurationError {
	return &ConfigurationError{
		Code:    ErrCodeMissingPersister,
		Kind:    kind,
		Message: "workflow has no Persister",
	}
}

// panicError carries a value recovered from a panicking Persister.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("persister panicked: %v", e.value)
}
