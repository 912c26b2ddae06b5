package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/revise/internal/record"
	"github.com/roach88/revise/internal/update"
	"github.com/roach88/revise/internal/value"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Update rejected (not found, forbidden, validation failed)
	ExitCommandError = 2 // Command error (bad config, missing kind, escalated persistence failure)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001" or an outcome status
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// RecordView is the JSON payload for a single record.
type RecordView struct {
	Kind     string       `json:"kind"`
	ID       string       `json:"id"`
	Revision int64        `json:"revision"`
	Fields   value.Object `json:"fields"`
}

// outputRecord prints a record, with an optional verb line ("Created").
func outputRecord(formatter *OutputFormatter, verb string, e *record.Entity) error {
	if formatter.Format == "json" {
		return formatter.Success(RecordView{
			Kind:     e.Kind(),
			ID:       e.ID(),
			Revision: e.Revision(),
			Fields:   e.Fields(),
		})
	}

	if verb != "" {
		fmt.Fprintf(formatter.Writer, "✓ %s %s %s\n", verb, e.Kind(), e.ID())
	} else {
		fmt.Fprintf(formatter.Writer, "%s %s\n", e.Kind(), e.ID())
	}
	fmt.Fprintf(formatter.Writer, "  revision: %d\n", e.Revision())
	for _, name := range e.Schema().FieldNames() {
		v, _ := e.Field(name)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", name, value.Format(v))
	}
	return nil
}

// outputUpdated prints a successful update.
func outputUpdated(formatter *OutputFormatter, report UpdateReport) error {
	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Updated %s %s\n", report.Kind, report.ID)
	for _, c := range report.Changes {
		marker := " "
		if c.Changed() {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %s: %s → %s\n", marker, c.Field, value.Format(c.Previous), value.Format(c.Current))
	}
	for _, field := range report.Dropped {
		fmt.Fprintf(formatter.Writer, "  (ignored %s)\n", field)
	}
	return nil
}

// outputRejected prints a non-Success outcome and returns an exit-code-1
// error.
func outputRejected(formatter *OutputFormatter, outcome update.Outcome, subject string) error {
	if formatter.Format == "json" {
		message := ""
		if len(outcome.Errors) > 0 {
			message = outcome.Errors[0].Message
		}
		if err := json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    string(outcome.Status),
				Message: message,
				Details: outcome.Errors,
			},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "✗ %s: %s\n", subject, outcome.Status)
		for _, e := range outcome.Errors {
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Key, e.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", subject, outcome.Status))
}
