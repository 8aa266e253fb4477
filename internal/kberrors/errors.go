// -----------------------------------------------------------------------
// Knowledge Base Errors - classified error taxonomy shared by all services
// -----------------------------------------------------------------------

package kberrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies the category of a knowledge base error. Adapters classify
// raw backend/container failures into a Kind; tool dispatch reports the
// message and callers branch on the Kind.
type Kind int

const (
	KindGeneric Kind = iota
	KindNotFound
	KindAlreadyExists
	KindNonUnique
	KindCreation
	KindDeletion
	KindUpdate
	KindRetrieval
	KindSearch
	KindValidationHTTP
	KindValidationTooManyURLs
	KindValidationNoIndexNofollow
	KindContainerStartFailed
	KindContainerNotFound
	KindBackendAuth
	KindBackendConnection
)

// String returns a stable name for the kind, used in log fields.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindNonUnique:
		return "non_unique"
	case KindCreation:
		return "creation"
	case KindDeletion:
		return "deletion"
	case KindUpdate:
		return "update"
	case KindRetrieval:
		return "retrieval"
	case KindSearch:
		return "search"
	case KindValidationHTTP:
		return "validation_http"
	case KindValidationTooManyURLs:
		return "validation_too_many_urls"
	case KindValidationNoIndexNofollow:
		return "validation_noindex_nofollow"
	case KindContainerStartFailed:
		return "container_start_failed"
	case KindContainerNotFound:
		return "container_not_found"
	case KindBackendAuth:
		return "backend_auth"
	case KindBackendConnection:
		return "backend_connection"
	default:
		return "generic"
	}
}

// Error is a classified error with an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two classified errors by Kind so that errors.Is(err, NotFound())
// works without comparing messages.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// New creates a classified error without a cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a classification to an underlying error.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the classification of an error, KindGeneric if unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindGeneric
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ClassifyBackend maps a backend failure to an error kind. Status codes give
// the strongest signal; otherwise the operation name decides, matching how
// callers describe the operation ("creating knowledge base index ...").
func ClassifyBackend(operation string, statusCode int, cause error) *Error {
	message := fmt.Sprintf("backend error while %s", operation)

	switch statusCode {
	case 401:
		return Wrap(KindBackendAuth, "authentication failed for the backend", cause)
	case 403:
		return Wrap(KindBackendAuth, "authorization failed for the backend", cause)
	case 404:
		return Wrap(KindNotFound, fmt.Sprintf("not found while %s", operation), cause)
	case 409:
		return Wrap(KindAlreadyExists, fmt.Sprintf("conflict while %s", operation), cause)
	}

	if cause != nil && strings.Contains(cause.Error(), "resource_already_exists_exception") {
		return Wrap(KindAlreadyExists, fmt.Sprintf("conflict while %s", operation), cause)
	}

	return Wrap(kindFromOperation(operation), message, cause)
}

func kindFromOperation(operation string) Kind {
	op := strings.ToLower(operation)
	switch {
	case strings.Contains(op, "updat"):
		return KindUpdate
	case strings.Contains(op, "creat"):
		return KindCreation
	case strings.Contains(op, "delet"):
		return KindDeletion
	case strings.Contains(op, "search"):
		return KindSearch
	case strings.Contains(op, "gett"), strings.Contains(op, "retriev"):
		return KindRetrieval
	default:
		return KindGeneric
	}
}
