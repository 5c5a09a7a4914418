// Package codeerr defines the tagged error taxonomy shared by the indexing
// engine. Callers dispatch on Kind via errors.As, never on message text.
package codeerr

import (
	"errors"
	"fmt"
)

// Kind is a stable error tag, unchanged across versions.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindBatchTooLarge     Kind = "batch_too_large"
	KindRateLimited       Kind = "rate_limited"
	KindAPIError          Kind = "api_error"
	KindModelNotAvailable Kind = "model_not_available"
	KindParseFailed       Kind = "parse_failed"
	KindNotFound          Kind = "not_found"
	KindAlreadyIndexing   Kind = "already_indexing"
	KindCancelled         Kind = "cancelled"
	KindPersistence       Kind = "persistence_error"
)

// Error is the engine's single error type. Fields beyond Kind/Msg are
// populated only for the kinds that carry structured detail.
type Error struct {
	Kind Kind
	Msg  string

	// api_error
	Status int
	// batch_too_large
	Max int
	// not_found
	ResourceKind string
	ResourceID   string

	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is allows errors.Is(err, &codeerr.Error{Kind: codeerr.KindX}) style
// checks: any *Error target matches when its Kind equals e's Kind; its
// other fields are not compared.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func InvalidInput(msg string) error {
	return &Error{Kind: KindInvalidInput, Msg: msg}
}

func BatchTooLarge(max int) error {
	return &Error{Kind: KindBatchTooLarge, Msg: fmt.Sprintf("batch exceeds maximum of %d", max), Max: max}
}

func RateLimited(msg string) error {
	return &Error{Kind: KindRateLimited, Msg: msg}
}

func APIError(status int, msg string) error {
	return &Error{Kind: KindAPIError, Msg: msg, Status: status}
}

func ModelNotAvailable(msg string) error {
	return &Error{Kind: KindModelNotAvailable, Msg: msg}
}

func ParseFailed(reason string) error {
	return &Error{Kind: KindParseFailed, Msg: reason}
}

func NotFound(kind, id string) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("%s %q not found", kind, id), ResourceKind: kind, ResourceID: id}
}

func AlreadyIndexing(projectID string) error {
	return &Error{Kind: KindAlreadyIndexing, Msg: fmt.Sprintf("project %q is already indexing", projectID)}
}

func Cancelled(reason string) error {
	return &Error{Kind: KindCancelled, Msg: reason}
}

func Persistence(detail string, wrapped error) error {
	return &Error{Kind: KindPersistence, Msg: detail, Wrapped: wrapped}
}

// KindOf extracts the Kind of err, if it (or something it wraps) is an
// *Error. Returns ("", false) otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
