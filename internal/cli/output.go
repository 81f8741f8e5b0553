package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands. Skip/deny outcomes are normal
// terminations and exit 0; only environment faults are non-zero.
const (
	ExitSuccess      = 0 // successful execution (including skips)
	ExitFailure      = 1 // operation failure
	ExitCommandError = 2 // command error (bad flags, unreadable config, I/O faults)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the standard JSON response format for CLI output.
type Response struct {
	Status string `json:"status"`           // "ok" or "skip"
	Data   any    `json:"data,omitempty"`   // success payload
	Reason string `json:"reason,omitempty"` // skip/deny reason
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Skip outputs a skip/deny outcome. Skips are normal terminations: the
// reason is printed and the command still exits 0.
func (f *OutputFormatter) Skip(stage, reason string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{
			Status: "skip",
			Data:   map[string]any{"stage": stage},
			Reason: reason,
		})
	}
	fmt.Fprintf(f.Writer, "SKIP at %s: %s\n", stage, reason)
	return nil
}
