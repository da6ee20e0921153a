// Package apperr defines the error taxonomy shared by the ledger, interview and idempotency layers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error class surfaced to clients.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindBadRequest          Kind = "bad_request"
	KindConflict            Kind = "conflict"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindDuplicateRequest    Kind = "duplicate_request"
	KindInternal            Kind = "internal"
)

// Kind sentinels. Domain errors wrap exactly one of these.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrBadRequest          = errors.New("bad request")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrDuplicateRequest    = errors.New("duplicate request")
)

var kindSentinels = []struct {
	kind     Kind
	sentinel error
}{
	{KindValidation, ErrValidation},
	{KindNotFound, ErrNotFound},
	{KindBadRequest, ErrBadRequest},
	{KindConflict, ErrConflict},
	{KindInsufficientCredits, ErrInsufficientCredits},
	{KindDuplicateRequest, ErrDuplicateRequest},
}

// KindOf classifies err. Anything that does not wrap a kind sentinel is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, candidate := range kindSentinels {
		if errors.Is(err, candidate.sentinel) {
			return candidate.kind
		}
	}
	return KindInternal
}

// IsOperational reports whether err is a user-facing failure rather than a system fault.
func IsOperational(err error) bool {
	kind := KindOf(err)
	return kind != "" && kind != KindInternal
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
