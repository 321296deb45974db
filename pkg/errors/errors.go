package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError carrying a more specific message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrUpstreamData signals that a places or forecast provider failed or
	// timed out. Generation aborts and nothing is persisted.
	ErrUpstreamData = &AppError{
		Code:       "UPSTREAM_DATA_ERROR",
		Message:    "Upstream travel data is currently unavailable",
		StatusCode: http.StatusBadGateway,
	}

	// ErrPersistence signals a failed itinerary or notification write. The
	// whole operation must be retried by the caller; no partial state is kept.
	ErrPersistence = &AppError{
		Code:       "PERSISTENCE_ERROR",
		Message:    "Failed to persist travel plan data",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrDelivery classifies a single reminder send failure. It is recorded on
	// the notification and never aborts dispatching of the remaining ones.
	ErrDelivery = &AppError{
		Code:       "DELIVERY_ERROR",
		Message:    "Reminder delivery failed",
		StatusCode: http.StatusBadGateway,
	}

	// ErrConfiguration marks deterministic delivery failures such as a missing
	// phone number; these are terminal and never retried.
	ErrConfiguration = &AppError{
		Code:       "CONFIGURATION_ERROR",
		Message:    "Delivery configuration is incomplete",
		StatusCode: http.StatusUnprocessableEntity,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap turns any error into an AppError while keeping the original error for logging.
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Internal:   err,
	}
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:       ErrBadRequest.Code,
		Message:    message,
		StatusCode: ErrBadRequest.StatusCode,
	}
}
