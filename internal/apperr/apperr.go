// Package apperr defines a small sentinel-error taxonomy covering the five
// kinds of failure this service's operations can surface. internal/httpapi
// is the only layer that maps these to HTTP status codes; every other
// package returns plain errors wrapped with these sentinels via
// errors.Is/errors.As.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an apperr.Error for HTTP status mapping.
type Kind int

const (
	// KindNotFound: a referenced node or edge does not exist (or is
	// soft-deleted).
	KindNotFound Kind = iota
	// KindBadRequest: invalid whitelist entity, empty fields, an
	// unresolvable geo origin with radius_km set, or an empty geohash
	// prefix.
	KindBadRequest
	// KindUnauthorized: missing or mismatched x-api-key.
	KindUnauthorized
	// KindStorage: any KV error, propagated from a commit or scan.
	KindStorage
	// KindDecode: a malformed persisted key. Never surfaces to clients —
	// scanners skip the row. internal/recovery logs a warning for each
	// skipped row; the other scanners skip without logging.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindStorage:
		return "storage_failure"
	case KindDecode:
		return "decode_failure"
	default:
		return "unknown"
	}
}

// Error is an apperr-classified error wrapping an optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// NotFound builds a KindNotFound error.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(format string, args ...any) error {
	return &Error{Kind: KindBadRequest, Msg: fmt.Sprintf(format, args...)}
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(msg string) error {
	return &Error{Kind: KindUnauthorized, Msg: msg}
}

// Storage wraps a KV error as a KindStorage error.
func Storage(cause error) error {
	return &Error{Kind: KindStorage, Msg: "storage failure", cause: cause}
}

// Decode wraps a codec decode failure as a KindDecode error. The row
// scanners in this module do not call it (they skip malformed rows
// directly); it must never reach a client response.
func Decode(cause error) error {
	return &Error{Kind: KindDecode, Msg: "decode failure", cause: cause}
}

// As reports whether err (or a wrapped cause) is an *Error, returning it.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err classifies as the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}
