package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

// ValidationError is a client-local rejection. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// SessionError means the portal refused to issue a direct upload session.
type SessionError struct {
	Err error
}

func (e *SessionError) Error() string { return "upload session refused: " + e.Err.Error() }
func (e *SessionError) Unwrap() error { return e.Err }

// ChunkUploadError means a chunk PUT was answered with neither success nor continue,
// or could not be sent at all (Status is 0 then).
type ChunkUploadError struct {
	Status int
	Offset int64
	Err    error
}

func (e *ChunkUploadError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("chunk upload at offset %d failed: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("chunk upload at offset %d rejected with status %d", e.Offset, e.Status)
}

func (e *ChunkUploadError) Unwrap() error { return e.Err }

// CompletionError means the bytes reached storage but the portal did not register them.
// The object identified by ObjectID is orphaned until the portal reconciles it.
type CompletionError struct {
	ObjectID string
	Err      error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("upload of object %s could not be registered: %v", e.ObjectID, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// AutosaveError is logged and never surfaced to the user.
type AutosaveError struct {
	Err error
}

func (e *AutosaveError) Error() string { return "autosave failed: " + e.Err.Error() }
func (e *AutosaveError) Unwrap() error { return e.Err }

// PublishError is surfaced with a retry affordance; the draft stays intact.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string { return "publish failed: " + e.Err.Error() }
func (e *PublishError) Unwrap() error { return e.Err }

// PermissionError is a 401/403 answer from the portal API.
type PermissionError struct {
	Status int
	Action string
}

func (e *PermissionError) Error() string {
	if e.Status == http.StatusUnauthorized {
		return "login required to " + e.Action
	}
	return "access denied: cannot " + e.Action
}

// Is reports whether err (or anything it wraps) is of type T.
func Is[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// StatusCode maps an error from any layer to the HTTP status the composer API answers with.
// Upstream failures map to 502 even when they wrap the portal's own status.
func StatusCode(err error) int {
	var (
		withStatus *ErrorWithStatusCode
		validation *ValidationError
		permission *PermissionError
	)
	switch {
	case errors.As(err, &permission):
		return permission.Status
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case Is[*PublishError](err), Is[*CompletionError](err), Is[*SessionError](err), Is[*ChunkUploadError](err):
		return http.StatusBadGateway
	case errors.As(err, &withStatus):
		return withStatus.StatusCode
	default:
		return http.StatusInternalServerError
	}
}
