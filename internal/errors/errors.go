// Package errors provides the error kinds and exit codes used across the check-in fleet.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Exit codes returned by the checkin binary.
const (
	ExitSuccess      = 0 // Every account ran; partial failure is informational
	ExitRuntimeError = 1 // Unrecoverable top-level error, or partial failure with fail_on_partial
	ExitConfigError  = 2 // No usable configuration or zero valid credentials
)

// Kind classifies an error.
type Kind int

const (
	KindRuntime Kind = iota
	KindConfig
	KindTransport
	KindRejection
	KindParse
	KindChallenge
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindTransport:
		return "transport"
	case KindRejection:
		return "rejected"
	case KindParse:
		return "parse"
	case KindChallenge:
		return "challenge"
	default:
		return "runtime"
	}
}

// Error is the structured error type shared by every package.
type Error struct {
	Kind    Kind
	Message string
	Step    string // Workflow step name if applicable
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil && e.Kind != KindRejection {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s", e.Step, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the process exit code for this error.
func (e *Error) ExitCode() int {
	if e.Kind == KindConfig {
		return ExitConfigError
	}
	return ExitRuntimeError
}

// New creates a runtime error.
func New(message string) *Error {
	return &Error{Kind: KindRuntime, Message: message}
}

// Newf creates a runtime error with formatting.
func Newf(format string, args ...any) *Error {
	return New(fmt.Sprintf(format, args...))
}

// Config creates a configuration error.
func Config(message string) *Error {
	return &Error{Kind: KindConfig, Message: message}
}

// Configf creates a configuration error with formatting.
func Configf(format string, args ...any) *Error {
	return Config(fmt.Sprintf(format, args...))
}

// Transport wraps a network or timeout failure of a single call.
func Transport(step string, cause error) *Error {
	return &Error{Kind: KindTransport, Step: step, Message: "request failed", Cause: cause}
}

// Rejection records a structured failure answered by the remote service.
// The message is the service's own text.
func Rejection(step, message string) *Error {
	return &Error{Kind: KindRejection, Step: step, Message: message}
}

// Parse records a response whose shape was not what the step expected.
func Parse(step, message string, cause error) *Error {
	return &Error{Kind: KindParse, Step: step, Message: message, Cause: cause}
}

// ChallengeUnavailable records a solver that produced no ticket after every attempt.
func ChallengeUnavailable(attempts int, cause error) *Error {
	return &Error{
		Kind:    KindChallenge,
		Step:    "challenge",
		Message: fmt.Sprintf("challenge unavailable after %d attempt(s)", attempts),
		Cause:   cause,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) *Error {
	return &Error{Kind: KindRuntime, Message: message, Cause: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindRuntime.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindRuntime
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Kind == kind
}

// GetExitCode returns the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.ExitCode()
	}
	return ExitRuntimeError
}
