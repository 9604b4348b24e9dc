package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API clients.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeStorage          = "STORAGE_ERROR"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeAIService        = "AI_SERVICE_ERROR"
	CodeNotification     = "NOTIFICATION_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

// NewStorageError reports a failed attachment write or read.
func NewStorageError(message string, err error) error {
	return &DomainError{Code: CodeStorage, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// NewPersistenceError reports a failed repository operation.
func NewPersistenceError(message string, err error) error {
	return &DomainError{Code: CodePersistence, Message: message, HTTPStatus: http.StatusInternalServerError, Err: err}
}

// NewAIServiceError reports a failed suggestion request.
func NewAIServiceError(message string, err error) error {
	return &DomainError{Code: CodeAIService, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

// NewAIUnavailable reports that suggestions are not configured.
func NewAIUnavailable(message string) error {
	return NewDomainError(CodeAIService, message, http.StatusServiceUnavailable, nil)
}

func NewNotificationError(message string, err error) error {
	return &DomainError{Code: CodeNotification, Message: message, HTTPStatus: http.StatusBadGateway, Err: err}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err wraps a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
