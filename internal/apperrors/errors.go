// Package apperrors provides the typed error taxonomy shared by the services
// and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeTransaction  ErrorType = "transaction_error"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal_error"
)

// AppError carries a classification, a user facing message and the cause.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
	Code    string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError of the given type.
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     cause,
		Code:    codeFor(errType),
	}
}

func Validation(message string) *AppError {
	return New(ErrorTypeValidation, message, nil)
}

func NotFound(message string) *AppError {
	return New(ErrorTypeNotFound, message, nil)
}

func Conflict(message string) *AppError {
	return New(ErrorTypeConflict, message, nil)
}

func Unavailable(message string, cause error) *AppError {
	return New(ErrorTypeUnavailable, message, cause)
}

func Transaction(message string, cause error) *AppError {
	return New(ErrorTypeTransaction, message, cause)
}

func Unauthorized(message string) *AppError {
	return New(ErrorTypeUnauthorized, message, nil)
}

func Internal(message string, cause error) *AppError {
	return New(ErrorTypeInternal, message, cause)
}

// TypeOf returns the type of the first AppError in the chain, or internal.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

func Is(err error, errType ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == errType
}

func IsValidation(err error) bool  { return Is(err, ErrorTypeValidation) }
func IsNotFound(err error) bool    { return Is(err, ErrorTypeNotFound) }
func IsConflict(err error) bool    { return Is(err, ErrorTypeConflict) }
func IsUnavailable(err error) bool { return Is(err, ErrorTypeUnavailable) }

// Wrap prefixes the message of an existing AppError, or classifies a plain
// error with errType.
func Wrap(err error, message string, errType ErrorType) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr,
			Code:    appErr.Code,
		}
	}
	return New(errType, message, err)
}

func codeFor(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeUnavailable:
		return "UNAVAILABLE"
	case ErrorTypeTransaction:
		return "TRANSACTION_FAILED"
	case ErrorTypeUnauthorized:
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}
