// Package analysis defines the outcome of one capture session: either the
// model's answer text or a classified failure that is shown to the user.
package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies why a session failed.
type Kind int

const (
	KindUnknown Kind = iota
	PermissionDenied
	CaptureFailed
	EncodingFailed
	NetworkError
	RemoteError
	MalformedResponse
	ConfigurationError
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "PermissionDenied"
	case CaptureFailed:
		return "CaptureFailed"
	case EncodingFailed:
		return "EncodingFailed"
	case NetworkError:
		return "NetworkError"
	case RemoteError:
		return "RemoteError"
	case MalformedResponse:
		return "MalformedResponse"
	case ConfigurationError:
		return "ConfigurationError"
	default:
		return "Unknown"
	}
}

// Fixed overlay messages for failures that carry no remote detail.
const (
	PermissionMessage    = "Permission Missing.\nPlease enable Screen Recording for this app in System Settings, then trigger the capture again."
	EncodingMessage      = "Failed to process image."
	ConfigurationMessage = "API key missing.\nSet GEMINI_API_KEY (or GEMINI_API_KEY_FILE) and restart."
	MalformedMessage     = "unexpected response shape"
)

// Error is a classified, terminal failure of a session.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the text shown in the overlay for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case PermissionDenied:
		return PermissionMessage
	case EncodingFailed:
		return EncodingMessage
	case ConfigurationError:
		return ConfigurationMessage
	case NetworkError:
		return "Network error: " + e.Message
	case RemoteError:
		return "Error: " + e.Message
	case MalformedResponse:
		return "Error: " + e.Message
	case CaptureFailed:
		return "Capture failed: " + e.Message
	default:
		return "Error: " + e.Message
	}
}

// Fail builds a classified error.
func Fail(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Result is produced once per session and consumed once by the overlay.
type Result struct {
	Text string
	Err  *Error
}

// Text wraps a successful answer.
func Text(s string) Result { return Result{Text: s} }

// Failure wraps a classified failure.
func Failure(kind Kind, message string, cause error) Result {
	return Result{Err: Fail(kind, message, cause)}
}

func (r Result) OK() bool { return r.Err == nil }
