package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is the failure category shown in logs and API responses.
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeInputRejected ErrorType = "input_rejected"
	ErrorTypeModel         ErrorType = "model"
	ErrorTypeStorage       ErrorType = "storage"
	ErrorTypeInternal      ErrorType = "internal"
)

type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by type and message so package-level sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

func NewValidationError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message, StatusCode: http.StatusBadRequest, Cause: cause}
}

func NewInputRejectedError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInputRejected, Message: message, StatusCode: http.StatusBadRequest, Cause: cause}
}

func NewModelError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeModel, Message: message, StatusCode: http.StatusBadGateway, Cause: cause}
}

func NewStorageError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeStorage, Message: message, StatusCode: http.StatusInternalServerError, Cause: cause}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, StatusCode: http.StatusInternalServerError, Cause: cause}
}

func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// UserMessage returns the AppError message without the type prefix and cause, or err.Error().
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
