package upstream

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies an upstream call failure. The kinds are mutually
// exclusive; classification is first-match-wins in the order listed.
type ErrorKind string

const (
	KindNetwork      ErrorKind = "NETWORK"
	KindTimeout      ErrorKind = "TIMEOUT"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindValidation   ErrorKind = "VALIDATION"
	KindServer       ErrorKind = "SERVER"
	KindUnknown      ErrorKind = "UNKNOWN"
)

// kindMessages holds the fixed user-facing message per kind.
var kindMessages = map[ErrorKind]string{
	KindNetwork:      "Unable to reach the service. Please check your connection.",
	KindTimeout:      "The request took too long. Please try again.",
	KindUnauthorized: "You are not authorized to perform this action.",
	KindNotFound:     "The requested resource was not found.",
	KindValidation:   "The submitted data was not accepted.",
	KindServer:       "The service is temporarily unavailable. Please try again later.",
	KindUnknown:      "Something went wrong. Please try again.",
}

// Error is the typed failure surfaced to callers after retries are
// exhausted or a non-retryable classification occurs.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
	Status  int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, status int) *Error {
	return &Error{Kind: kind, Message: kindMessages[kind], Err: err, Status: status}
}

// KindOf extracts the classification from an error returned by the client.
func KindOf(err error) ErrorKind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindUnknown
}

// classifyTransportError maps a transport-level failure to NETWORK or
// TIMEOUT. The per-attempt deadline winning the race is a TIMEOUT; any
// other transport failure is NETWORK.
func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}

// classifyStatus maps a non-2xx HTTP status to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == 401:
		return KindUnauthorized
	case status == 404:
		return KindNotFound
	case status == 400 || status == 422:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}
