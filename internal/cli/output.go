package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/fatih/color"

	"github.com/roach88/extkit/internal/catalog"
	"github.com/roach88/extkit/internal/cipher"
	"github.com/roach88/extkit/internal/ledger"
	"github.com/roach88/extkit/internal/reveal"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (rejected write, denied reveal, unavailable ledger)
	ExitCommandError = 2 // Command error (bad config, bad arguments, missing files)
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric     = "E001"
	ErrCodeConfig      = "E002"
	ErrCodeNotFound    = "E005"
	ErrCodeInvalid     = "E006"
	ErrCodeUnavailable = "E101"
	ErrCodeRejected    = "E102"
	ErrCodeDenied      = "E103"
	ErrCodeOrphaned    = "E104"
	ErrCodeFormat      = "E105"
)

// ExitError represents an error with a specific exit code.
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
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.Render(data, func(w io.Writer) {
		fmt.Fprintln(w, data)
	})
}

// Render encodes data as JSON, or calls text to print it for humans.
func (f *OutputFormatter) Render(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	text(f.Writer)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
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

	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", color.RedString("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail prints err in the configured format and returns the matching
// ExitError.
func (f *OutputFormatter) Fail(message string, err error) error {
	code, exit, text := classify(err)
	if text == "" {
		text = message + ": " + err.Error()
	}
	if outErr := f.Error(code, text, nil); outErr != nil {
		return outErr
	}
	return WrapExitError(exit, message, err)
}

// classify maps domain errors onto an error code, an exit code and, for
// well-known failures, a short user-facing message.
func classify(err error) (code string, exit int, text string) {
	var se *catalog.SubmitError
	switch {
	case errors.As(err, &se) && se.Orphaned:
		return ErrCodeOrphaned, ExitFailure, se.Message()
	case errors.Is(err, ledger.ErrRejected):
		return ErrCodeRejected, ExitFailure, "transaction rejected by user"
	case errors.Is(err, ledger.ErrUnavailable):
		return ErrCodeUnavailable, ExitFailure, "ledger is not available"
	case errors.Is(err, reveal.ErrDenied):
		return ErrCodeDenied, ExitFailure, "reveal denied"
	case errors.Is(err, catalog.ErrInvalidDraft):
		return ErrCodeInvalid, ExitCommandError, ""
	case cipher.IsFormatError(err):
		return ErrCodeFormat, ExitFailure, ""
	case errors.Is(err, errNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound, ExitCommandError, ""
	case errors.Is(err, errConfig):
		return ErrCodeConfig, ExitCommandError, ""
	default:
		return ErrCodeGeneric, ExitFailure, ""
	}
}

var (
	errNotFound = errors.New("not found")
	errConfig   = errors.New("configuration error")
)

// configError marks err as a configuration problem.
func configError(err error) error {
	return fmt.Errorf("%w: %w", errConfig, err)
}
