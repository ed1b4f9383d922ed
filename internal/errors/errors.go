package errors

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation is returned when input fails validation.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateUsername is returned when registering a username that is taken.
	ErrDuplicateUsername = errors.New("username must be unique")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTokenMissing is returned when no bearer token was supplied.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid is returned when a token fails signature or payload checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when a token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden is returned when the caller does not own the note.
	ErrForbidden = errors.New("only the owner can modify this note")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRefreshToken is returned when a refresh token is unknown, reused or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	// ErrUnavailable is returned when a backing store needed to complete the
	// request is down. It maps to the generic 500.
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// ValidationError describes which input was rejected. It matches ErrValidation.
type ValidationError struct {
	Message string
}

// NewValidationError creates a validation error with a client facing message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Anything unrecognised becomes a generic 500 so internals never leak.
func MapErrorToHTTP(err error) *HTTPError {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		return NewHTTPError(http.StatusBadRequest, validation.Message, "VALIDATION_ERROR")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, ErrValidation.Error(), "VALIDATION_ERROR")
	case errors.Is(err, ErrDuplicateUsername):
		return NewHTTPError(http.StatusBadRequest, ErrDuplicateUsername.Error(), "DUPLICATE_USERNAME")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidCredentials.Error(), "INVALID_CREDENTIALS")
	case errors.Is(err, ErrTokenMissing):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenMissing.Error(), "TOKEN_MISSING")
	case errors.Is(err, ErrTokenExpired):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenExpired.Error(), "TOKEN_EXPIRED")
	case errors.Is(err, ErrTokenInvalid):
		return NewHTTPError(http.StatusUnauthorized, ErrTokenInvalid.Error(), "TOKEN_INVALID")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, ErrForbidden.Error(), "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, ErrNotFound.Error(), "NOT_FOUND")
	case errors.Is(err, ErrInvalidRefreshToken):
		return NewHTTPError(http.StatusUnauthorized, ErrInvalidRefreshToken.Error(), "INVALID_REFRESH_TOKEN")
	default:
		return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}
