package models

import (
	"errors"
	"net/http"
)

// ErrorKind classifies an operation failure for the response dispatcher.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	// KindInvalid covers missing or misnamed uploads and bad page specifications.
	KindInvalid
	// KindCorrupt is a conversion failure whose error text points at a damaged input.
	KindCorrupt
	// KindUnavailable means the converter for the operation is not installed.
	KindUnavailable
	// KindConversion is any other failure reported by an external converter.
	KindConversion
	// KindTooLarge means the request body exceeded the upload limit.
	KindTooLarge
)

// Status maps the kind to the HTTP status code sent to the caller.
func (k ErrorKind) Status() int {
	switch k {
	case KindInvalid, KindCorrupt:
		return http.StatusBadRequest
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindCorrupt:
		return "corrupt"
	case KindUnavailable:
		return "unavailable"
	case KindConversion:
		return "conversion"
	case KindTooLarge:
		return "too_large"
	default:
		return "internal"
	}
}

// FailureMarker prefixes every message shown to the caller.
const FailureMarker = "❌ "

// OpError is the failed branch of an operation result. Message is what the
// caller sees; Err keeps the underlying cause for logs.
type OpError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *OpError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OpError) Unwrap() error { return e.Err }

// Fail builds an OpError with the failure marker prepended to msg.
func Fail(kind ErrorKind, msg string, cause error) *OpError {
	return &OpError{Kind: kind, Message: FailureMarker + msg, Err: cause}
}

// AsOpError unwraps err into an OpError. Errors that are not OpErrors are
// reported as internal failures with a generic message.
func AsOpError(err error) *OpError {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}
	return Fail(KindInternal, "Internal error while processing the file", err)
}
