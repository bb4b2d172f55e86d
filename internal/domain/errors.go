// Package domain holds the control plane's core entities and the error
// taxonomy every other package propagates untransformed up to the HTTP edge.
package domain

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of error categories. The HTTP edge maps each Kind
// to a status code exactly once; no other package re-maps an error's Kind.
type Kind string

const (
	KindQuota             Kind = "quota"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindAuthFailed        Kind = "auth_failed"
	KindVersionConflict   Kind = "version_conflict"
	KindInvalidState      Kind = "invalid_state"
	KindTransientIaaS     Kind = "transient_iaas"
	KindFatalIaaS         Kind = "fatal_iaas"
	KindTransientStore    Kind = "transient_store"
	KindInternalInvariant Kind = "internal_invariant"
)

// Error is a classified domain error. Wrapping preserves the original cause
// for logs while Kind drives the status-code map at the edge.
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

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds a classified error with an optional wrapped cause.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// AccountLimitReached is the Quota-kind error raised when a create_bot call
// finds the account already at its configured maximum.
func AccountLimitReached(max int) *Error {
	return NewError(KindQuota, fmt.Sprintf("account limit reached: maximum %d bots allowed", max), nil)
}

// NotFound builds a NotFound-kind error naming the missing entity.
func NotFound(entity string, id fmt.Stringer) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s not found: %s", entity, id), nil)
}

// ConfigVersionConflict is raised when a worker acknowledges a config version
// that no longer matches the bot's desired version.
type ConfigVersionConflict struct {
	Acknowledged int32
	Desired      int32
}

func (e *ConfigVersionConflict) Error() string {
	return fmt.Sprintf("config version conflict: acknowledged=%d desired=%d", e.Acknowledged, e.Desired)
}

// AsDomainError extracts a *Error from err, if it is one or wraps one.
func AsDomainError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
