package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	// KindRequestFailed covers transport errors and non-2xx responses.
	KindRequestFailed Kind = iota + 1
	// KindResponseEmpty means the API answered with no usable payload.
	KindResponseEmpty
	// KindInvalidJSON means the payload could not be decoded.
	KindInvalidJSON
)

func (k Kind) String() string {
	switch k {
	case KindRequestFailed:
		return "RequestError"
	case KindResponseEmpty:
		return "EmptyResponseError"
	case KindInvalidJSON:
		return "JSONParseError"
	default:
		return "FetchError"
	}
}

// Error is returned by every API client in funbot.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func RequestFailed(format string, args ...any) *Error {
	return &Error{Kind: KindRequestFailed, Message: fmt.Sprintf(format, args...)}
}

func ResponseEmpty(format string, args ...any) *Error {
	return &Error{Kind: KindResponseEmpty, Message: fmt.Sprintf(format, args...)}
}

func InvalidJSON(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidJSON, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err wraps a fetch error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
