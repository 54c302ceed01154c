package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes shared by the HTTP layer and the conversation state
const (
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeSafetyBlocked       = "SAFETY_BLOCKED"
	CodeEmptyResponse       = "EMPTY_RESPONSE"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeCharacterNotFound   = "CHARACTER_NOT_FOUND"
	CodeNoCharacterSelected = "NO_CHARACTER_SELECTED"
	CodeRequestInFlight     = "REQUEST_IN_FLIGHT"
	CodeEmptyInput          = "EMPTY_INPUT"
	CodeSpeechUnavailable   = "SPEECH_UNAVAILABLE"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInternal            = "INTERNAL_ERROR"
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	cause      error
}

// Error implements the error interface
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches another AppError by code so errors.Is works against the
// package-level prototypes below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause attaches the error that triggered this one
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.cause = err
	return &cp
}

// NewError creates a new application error
func NewError(statusCode int, code string, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
	}
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(code string, message string) *AppError {
	return NewError(http.StatusBadRequest, code, message)
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(code string, message string) *AppError {
	return NewError(http.StatusNotFound, code, message)
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(code string, message string) *AppError {
	return NewError(http.StatusConflict, code, message)
}

// NewInternalServerError creates a 500 Internal Server Error
func NewInternalServerError(code string, message string) *AppError {
	return NewError(http.StatusInternalServerError, code, message)
}

// Provider failure reasons. Message is what the user sees.
var (
	ErrInvalidCredentials = NewError(http.StatusBadGateway, CodeInvalidCredentials,
		"Invalid AI provider API key. Please check your configuration.")
	ErrQuotaExceeded = NewError(http.StatusTooManyRequests, CodeQuotaExceeded,
		"AI provider quota exceeded. Please try again later.")
	ErrSafetyBlocked = NewError(http.StatusUnprocessableEntity, CodeSafetyBlocked,
		"Response blocked by safety filters. Please try rephrasing your message.")
	ErrEmptyResponse = NewError(http.StatusBadGateway, CodeEmptyResponse,
		"Empty response from AI provider")
	ErrProviderUnknown = NewError(http.StatusBadGateway, CodeProviderError,
		"Failed to get response from AI provider")
)

// Intents the conversation rejects without surfacing an error
var (
	ErrEmptyInput          = NewBadRequestError(CodeEmptyInput, "Message text is empty")
	ErrNoCharacterSelected = NewConflictError(CodeNoCharacterSelected, "No character selected")
	ErrRequestInFlight     = NewConflictError(CodeRequestInFlight, "A message is already being processed")
	ErrCharacterNotFound   = NewNotFoundError(CodeCharacterNotFound, "Character not found")
	ErrSpeechUnavailable   = NewError(http.StatusServiceUnavailable, CodeSpeechUnavailable,
		"Speech synthesis is unavailable")
)

// ProviderError builds a provider failure carrying the raw provider message
func ProviderError(message string) *AppError {
	if message == "" {
		return ErrProviderUnknown
	}
	return NewError(http.StatusBadGateway, CodeProviderError, message)
}

// Is reports whether err matches target's code anywhere in its chain
func Is(err error, target *AppError) bool {
	return stderrors.Is(err, target)
}

// As finds the first AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
