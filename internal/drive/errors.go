package drive

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable category of a drive error.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindNameConflict       Kind = "name_conflict"
	KindNotEmpty           Kind = "not_empty"
	KindInvalidParent      Kind = "invalid_parent"
	KindCycleDetected      Kind = "cycle_detected"
	KindInvalidQuery       Kind = "invalid_query"
	KindInvalidName        Kind = "invalid_name"
	KindInvalidArgument    Kind = "invalid_argument"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindStorageError       Kind = "storage_error"
	KindEmbeddingDegraded  Kind = "embedding_degraded"
	KindUnknownUser        Kind = "unknown_user"
	KindInternal           Kind = "internal"
)

// Error is returned by every DriveService operation that fails for a reason
// the caller can act on. Message is safe to show to users: it never contains
// storage paths or driver output. Err holds the underlying cause for logs.
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

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindStorageUnavailable
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrNameConflict       = &Error{Kind: KindNameConflict, Message: "name already exists in this location"}
	ErrNotEmpty           = &Error{Kind: KindNotEmpty, Message: "folder is not empty"}
	ErrInvalidParent      = &Error{Kind: KindInvalidParent, Message: "parent folder does not exist"}
	ErrCycleDetected      = &Error{Kind: KindCycleDetected, Message: "folder hierarchy is corrupted"}
	ErrInvalidQuery       = &Error{Kind: KindInvalidQuery, Message: "search query must not be empty"}
	ErrInvalidName        = &Error{Kind: KindInvalidName, Message: "invalid name"}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable, Message: "storage is unavailable"}
	ErrStorageError       = &Error{Kind: KindStorageError, Message: "storage operation failed"}
	ErrEmbeddingDegraded  = &Error{Kind: KindEmbeddingDegraded, Message: "embedding service unavailable"}
	ErrUnknownUser        = &Error{Kind: KindUnknownUser, Message: "user is not registered"}
)

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the Kind of err, or KindInternal if err is not a drive error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// Errors returned by Database implementations. The service translates them
// into the taxonomy above.
var (
	// ErrRecordNotFound means a mutation matched no row owned by the caller.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUniqueViolation means a store uniqueness constraint rejected the write.
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrFolderHasChildren means a folder delete found child folders or files.
	ErrFolderHasChildren = errors.New("folder has children")

	// ErrHierarchyCycle means a reparent would make a folder its own ancestor,
	// or the ancestor walk exceeded the depth bound.
	ErrHierarchyCycle = errors.New("folder hierarchy cycle")
)

// ErrBlobNotFound is returned by BlobStore implementations when no blob
// exists at the requested path.
var ErrBlobNotFound = errors.New("blob not found")
