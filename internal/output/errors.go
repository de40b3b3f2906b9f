package output

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/bloggera/bloggera/internal/domain"
)

// Exit code constants
const (
	ExitSuccess         = 0
	ExitGeneral         = 1
	ExitUsageError      = 2
	ExitValidationError = 3
	ExitConfigError     = 4
	ExitAuthError       = 5
	ExitNetworkError    = 6
	ExitNotFound        = 7
)

// CLIError is a structured error with user-facing context
type CLIError struct {
	Summary    string
	Detail     string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string {
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NotLoggedIn is returned by guarded commands without a session
func NotLoggedIn() *CLIError {
	return &CLIError{
		Summary:    "not logged in",
		Suggestion: "Run 'bloggera login' or 'bloggera register' first",
		ExitCode:   ExitAuthError,
		Err:        domain.ErrNoSession,
	}
}

// FromError maps a client error onto a CLIError. CLIErrors pass through unchanged.
func FromError(summary string, err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	out := &CLIError{Summary: summary, Detail: err.Error(), ExitCode: ExitGeneral, Err: err}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		out.Summary = fmt.Sprintf("%s: invalid %s", summary, ve.Field)
		out.Detail = ve.Error()
		out.ExitCode = ExitValidationError
	case errors.Is(err, domain.ErrNoSession):
		return NotLoggedIn()
	case errors.Is(err, domain.ErrAuth):
		out.ExitCode = ExitAuthError
		out.Suggestion = "Check your credentials, or run 'bloggera login' again"
	case errors.Is(err, domain.ErrNotFound):
		out.ExitCode = ExitNotFound
	case errors.Is(err, domain.ErrNetwork):
		out.ExitCode = ExitNetworkError
		out.Suggestion = "The Bloggera API did not answer; retry the command"
	case errors.Is(err, domain.ErrValidation):
		out.ExitCode = ExitValidationError
	}
	return out
}

// FormatError prints a structured error to stderr
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
	} else {
		fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	}
	if e.Detail != "" && e.Detail != e.Summary {
		fmt.Fprintf(p.err, "  Cause: %s\n", e.Detail)
	}
	if e.Suggestion != "" {
		if p.useColors {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		} else {
			fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
	}
}
