package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain errors.
var (
	ErrPartnerNotFound      = NewError(ErrCodeNotFound, "bpartner not found")
	ErrProductNotFound      = NewError(ErrCodeNotFound, "product not found")
	ErrContractNotFound     = NewError(ErrCodeNotFound, "contract not found")
	ErrContractLineNotFound = NewError(ErrCodeNotFound, "contract line not found")
	ErrSupplyNotFound       = NewError(ErrCodeNotFound, "product supply not found")
	ErrLockNotAcquired      = NewError(ErrCodeConflict, "bpartner sync already in progress")
	ErrInvalidPayload       = NewError(ErrCodeInvalid, "invalid payload")
)

// RecordError reports a problem with one synchronized record. It always
// carries the entity kind and the agent-assigned UUID so callers can act on it.
type RecordError struct {
	Kind    EntityKind `json:"kind"`
	UUID    string     `json:"uuid"`
	Code    ErrorCode  `json:"code"`
	Message string     `json:"message"`
}

func (e *RecordError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %s", e.Kind, e.UUID, e.Message)
}

// Unwrap exposes the coded error so IsDomainError works on record errors.
func (e *RecordError) Unwrap() error {
	if e == nil {
		return nil
	}
	return NewError(e.Code, e.Message)
}

// NewValidationError reports a malformed snapshot record.
func NewValidationError(kind EntityKind, uuid, format string, args ...any) *RecordError {
	return &RecordError{Kind: kind, UUID: uuid, Code: ErrCodeInvalid, Message: fmt.Sprintf(format, args...)}
}

// NewIdentityConflict reports an identifier that already belongs to another scope.
func NewIdentityConflict(kind EntityKind, uuid, format string, args ...any) *RecordError {
	return &RecordError{Kind: kind, UUID: uuid, Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return IsDomainError(err, ErrCodeNotFound)
}
