package errors

import "fmt"

// Storage-specific error definitions
var (
	ErrStorageInvalidConfig = NewStorageError("STORAGE_CONFIG_INVALID", "storage configuration invalid")
	ErrStorageNotConnected  = NewStorageError("STORAGE_NOT_CONNECTED", "storage not connected")
	ErrStorageWriteFailed   = NewStorageError("STORAGE_WRITE_FAILED", "storage write failed")
	ErrStorageReadFailed    = NewStorageError("STORAGE_READ_FAILED", "storage read failed")
	ErrStorageQueryFailed   = NewStorageError("STORAGE_QUERY_FAILED", "storage query failed")
)

// NewStorageConfigError reports an invalid backend configuration
func NewStorageConfigError(backend, reason string) *AppError {
	return NewStorageError("STORAGE_CONFIG_INVALID", fmt.Sprintf("%s storage: %s", backend, reason)).
		WithContext("backend", backend)
}

// WrapStorageError wraps a backend failure for the given operation
func WrapStorageError(err error, backend, operation string) *AppError {
	return WrapError(err, ErrorTypeStorage, "STORAGE_"+operation+"_FAILED",
		fmt.Sprintf("%s storage %s failed", backend, operationVerb(operation))).
		WithDetails(err.Error()).
		WithContext("backend", backend)
}

func operationVerb(operation string) string {
	switch operation {
	case "WRITE":
		return "write"
	case "READ":
		return "read"
	case "QUERY":
		return "query"
	case "CONNECT":
		return "connect"
	default:
		return "operation"
	}
}
