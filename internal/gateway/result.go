package gateway

import "errors"

var (
	// ErrInvalidRequest covers a missing image or one that is not a
	// png/jpeg data URI with a valid base64 payload.
	ErrInvalidRequest = errors.New("invalid generation request")
	// ErrMisconfigured is returned when no model credential is configured.
	ErrMisconfigured = errors.New("image service misconfigured")
)

// Result is the outcome of one generation call: exactly one of Success,
// TextOnly or Failure.
type Result interface {
	isResult()
}

// Success carries the generated image as a data URI.
type Success struct {
	Image string
}

// TextOnly means the model answered but produced no image.
type TextOnly struct {
	Message string
}

type FailureKind int

const (
	// FailureUpstream: the service reported a non-success status.
	FailureUpstream FailureKind = iota
	// FailureNoValidResponse: a success status without usable parts.
	FailureNoValidResponse
	// FailureTransport: no reply was received at all.
	FailureTransport
)

func (k FailureKind) String() string {
	switch k {
	case FailureUpstream:
		return "upstream"
	case FailureNoValidResponse:
		return "no_valid_response"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

const ReasonNoValidResponse = "no valid response"

// Failure is a failed call. Details holds the raw service reply for
// diagnostics and may be nil.
type Failure struct {
	Kind       FailureKind
	Reason     string
	StatusCode int
	Details    interface{}
}

func (Success) isResult()  {}
func (TextOnly) isResult() {}
func (Failure) isResult()  {}
