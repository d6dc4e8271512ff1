package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel causes used across the pipeline
var (
	ErrNoDateColumn     = errors.New("no date column detected")
	ErrNoValueColumn    = errors.New("no numeric target column detected")
	ErrEmptyTable       = errors.New("table has no rows")
	ErrNoValidRows      = errors.New("no valid rows after cleaning")
	ErrInsufficientData = errors.New("at least 2 distinct historical points are required")
	ErrDegenerateSeries = errors.New("series values are constant")
	ErrEngineNotFound   = errors.New("forecast engine not found")
	ErrInvalidHorizon   = errors.New("horizon must be a non-negative number of days")
	ErrUploadNotFound   = errors.New("upload not found")
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeSchema     ErrorType = "schema"
	ErrorTypeFit        ErrorType = "fit"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes
const (
	CodeNoDateColumn     = "NO_DATE_COLUMN"
	CodeNoValueColumn    = "NO_VALUE_COLUMN"
	CodeEmptyTable       = "EMPTY_TABLE"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeDegenerateSeries = "DEGENERATE_SERIES"
	CodeFitFailed        = "FIT_FAILED"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeInvalidHorizon   = "INVALID_HORIZON"
	CodeUploadFailed     = "UPLOAD_FAILED"
	CodeSourceFailed     = "SOURCE_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError represents an application-specific error with additional context
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Context    map[string]interface{} `json:"context,omitempty"`
	HTTPStatus int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// WrapError wraps an existing error with application context
func WrapError(err error, errType ErrorType, code, message string) *AppError {
	return &AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Cause:      err,
		HTTPStatus: getDefaultHTTPStatus(errType),
	}
}

// NewSchemaError reports a table whose columns cannot be mapped. The
// message is the cause text so callers see e.g. "no date column detected".
func NewSchemaError(code string, cause error) *AppError {
	return WrapError(cause, ErrorTypeSchema, code, cause.Error())
}

// NewFitError reports a series the engine cannot fit
func NewFitError(code string, cause error) *AppError {
	return WrapError(cause, ErrorTypeFit, code, "model fit failed").WithDetails(cause.Error())
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return NewAppError(ErrorTypeValidation, code, message)
}

// NewStorageError creates a storage error
func NewStorageError(code, message string) *AppError {
	return NewAppError(ErrorTypeStorage, code, message)
}

// NewInternalError creates an internal error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrorTypeInternal, CodeInternalError, message)
}

// getDefaultHTTPStatus returns the default HTTP status for an error type
func getDefaultHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeSchema, ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeFit, ErrorTypeStorage, ErrorTypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// TypeOf returns the error type of err, internal for anything that is not
// an AppError
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error to the response status code
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus != 0 {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// IsSchemaError reports whether err is a normalization failure
func IsSchemaError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeSchema
}

// IsFitError reports whether err is an engine fit failure
func IsFitError(err error) bool {
	return err != nil && TypeOf(err) == ErrorTypeFit
}

// ErrorResponse represents an error response for APIs
type ErrorResponse struct {
	Detail    string `json:"detail"`
	Type      string `json:"type,omitempty"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds the response body for err
func NewErrorResponse(err error, requestID string) ErrorResponse {
	resp := ErrorResponse{Detail: err.Error(), RequestID: requestID}
	var appErr *AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
		resp.Code = appErr.Code
	} else {
		resp.Type = string(ErrorTypeInternal)
		resp.Code = CodeInternalError
	}
	return resp
}
