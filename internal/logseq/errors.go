package logseq

import (
	"errors"
	"strings"
)

// Error kinds returned by the query pipeline.
//
// Every error produced by a Client wraps exactly one of these, so callers
// can branch with errors.Is():
//
//	if errors.Is(err, logseq.ErrCommandFailed) {
//	    // the query itself was rejected by the engine
//	}
var (
	// ErrInvalidConfig is returned when the graph name is blank or one of
	// the executable paths does not point at an existing file.
	ErrInvalidConfig = errors.New("invalid CLI configuration")

	// ErrCommandFailed is returned when the query engine exits non-zero.
	ErrCommandFailed = errors.New("logseq CLI command failed")

	// ErrConversionFailed is returned when the EDN converter exits non-zero.
	ErrConversionFailed = errors.New("EDN to JSON conversion failed")

	// ErrDecodingFailed is returned when converted output matches no known
	// result shape, or a property value matches no known type.
	ErrDecodingFailed = errors.New("failed to decode response")

	// ErrProcessLaunch is returned when the operating system could not start
	// a child process at all.
	ErrProcessLaunch = errors.New("process execution error")
)

// Error carries the kind of failure together with the text that explains
// it: stderr for command and conversion failures, a content description for
// decoding failures, the OS error for launch failures.
type Error struct {
	// Kind is one of the Err* sentinels above.
	Kind error

	// Op names the pipeline step, e.g. "query", "list", "convert".
	Op string

	// Detail is the human-readable explanation shown to users verbatim.
	Detail string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == ErrInvalidConfig {
		msg := "invalid CLI configuration: check graph name and CLI paths"
		if e.Detail != "" {
			msg += " (" + e.Detail + ")"
		}
		return msg
	}

	detail := strings.TrimSpace(e.Detail)
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + detail
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op, detail string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: cause}
}

// IsUserActionRequired returns true if the error can only be fixed by the
// user: a bad configuration or a query the engine rejected.
func IsUserActionRequired(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrCommandFailed)
}

// IsFatal returns true if no query can succeed until the environment
// changes: the executables are missing or cannot be started.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrProcessLaunch)
}

// IsDefect returns true if the engine answered but its output could not be
// understood. These indicate a new result shape that needs support.
func IsDefect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrDecodingFailed) || errors.Is(err, ErrConversionFailed)
}
