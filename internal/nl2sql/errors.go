package nl2sql

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInput          Kind = "input"
	KindTransport      Kind = "transport"
	KindResponseFormat Kind = "response_format"
	KindResponseShape  Kind = "response_shape"
)

const (
	MessageTransport      = "Failed to compile the query. The AI model could not process the request."
	MessageResponseFormat = "Failed to parse the AI's response. The format was unexpected."
	MessageInput          = "Both a query and a schema are required."
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies err. Errors that did not come from this package count as
// transport failures, which is how an unexpected failure is reported to users.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindTransport
}

func UserMessage(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case KindInput:
		return MessageInput
	case KindResponseFormat:
		return MessageResponseFormat
	default:
		return MessageTransport
	}
}
