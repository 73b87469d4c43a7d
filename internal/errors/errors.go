package errors

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	// cause is kept for errors.Is/As but never serialized
	cause error
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap returns the error the APIError was built from, if any
func (e *APIError) Unwrap() error {
	return e.cause
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodeNotFound             = "NOT_FOUND"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeInternal             = "INTERNAL_SERVER_ERROR"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeDatasetLoadFailed    = "DATASET_LOAD_FAILED"
	CodeDatasetMissingColumn = "DATASET_MISSING_COLUMNS"
	CodeDatasetEmptySelect   = "DATASET_EMPTY_SELECTION"
	CodeDatasetNotFound      = "DATASET_NOT_FOUND"
	CodeChartNoData          = "CHART_NO_DATA"
	CodeWebSocketUpgrade     = "WEBSOCKET_UPGRADE_FAILED"
)

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Wrap creates an APIError carrying err as its cause
func Wrap(err error, statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		cause:      err,
	}
}

// WithDetails sets Details and returns e
func (e *APIError) WithDetails(details interface{}) *APIError {
	e.Details = details
	return e
}

// Predefined error types for common scenarios
var (
	ErrInvalidRequest     = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrNotFound           = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrRateLimitExceeded  = New(http.StatusTooManyRequests, CodeRateLimitExceeded, "Rate limit exceeded")
	ErrInternalServer     = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeServiceUnavailable, "Service temporarily unavailable")
	ErrWebSocketUpgrade   = New(http.StatusInternalServerError, CodeWebSocketUpgrade, "WebSocket upgrade failed")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return Wrap(err, http.StatusBadRequest, CodeInvalidRequest, "Invalid request format").WithDetails(err.Error())
}

// ErrValidation creates a validation error with field details
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", errs)
}

// NotFoundError creates a not found error with details
func NotFoundError(resource string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), resource)
}

// PayloadTooLarge reports a request body above limit bytes
func PayloadTooLarge(limit int64) *APIError {
	return NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
		fmt.Sprintf("Le fichier dépasse la taille maximale de %d octets", limit), limit)
}

// DatasetLoadFailed reports a workbook that could not be read
func DatasetLoadFailed(err error) *APIError {
	return Wrap(err, http.StatusBadGateway, CodeDatasetLoadFailed, err.Error())
}

// DatasetMissingColumns reports required columns absent from a workbook
func DatasetMissingColumns(err error, missing []string) *APIError {
	return Wrap(err, http.StatusUnprocessableEntity, CodeDatasetMissingColumn, err.Error()).WithDetails(missing)
}

// DatasetEmptySelection reports filters matching no grievance
func DatasetEmptySelection(err error) *APIError {
	return Wrap(err, http.StatusUnprocessableEntity, CodeDatasetEmptySelect, err.Error())
}

// DatasetNotFound reports an unknown or expired dataset id
func DatasetNotFound(id string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeDatasetNotFound, fmt.Sprintf("jeu de données %q introuvable ou expiré", id), id)
}
