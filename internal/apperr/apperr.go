// Package apperr classifies pipeline failures. Every terminal failure of an
// invocation carries exactly one Kind, and every Kind maps to one user message.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Unknown Kind = iota
	NoSelection
	WrongSelectionType
	TooSmall
	OutOfBounds
	ExportUnavailable
	BadRequest
	InvalidCredentials
	PaymentRequired
	QuotaExceeded
	ServiceUnavailable
	UnknownServiceError
	MalformedResponse
	InconsistentServerState
	InvocationInFlight
	MissingCredentials
	TransportFailure
	RenderUnavailable
)

var kindNames = map[Kind]string{
	Unknown:                 "Unknown",
	NoSelection:             "NoSelection",
	WrongSelectionType:      "WrongSelectionType",
	TooSmall:                "TooSmall",
	OutOfBounds:             "OutOfBounds",
	ExportUnavailable:       "ExportUnavailable",
	BadRequest:              "BadRequest",
	InvalidCredentials:      "InvalidCredentials",
	PaymentRequired:         "PaymentRequired",
	QuotaExceeded:           "QuotaExceeded",
	ServiceUnavailable:      "ServiceUnavailable",
	UnknownServiceError:     "UnknownServiceError",
	MalformedResponse:       "MalformedResponse",
	InconsistentServerState: "InconsistentServerState",
	InvocationInFlight:      "InvocationInFlight",
	MissingCredentials:      "MissingCredentials",
	TransportFailure:        "TransportFailure",
	RenderUnavailable:       "RenderUnavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists every classified kind, Unknown excluded.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames)-1)
	for k := NoSelection; k <= RenderUnavailable; k++ {
		out = append(out, k)
	}
	return out
}

// Recoverable reports whether the kind is handled per item without ending
// the invocation.
func (k Kind) Recoverable() bool {
	return k == TooSmall || k == OutOfBounds
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted cause.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies err. A nil err still yields an error of the given kind.
func Wrap(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
