package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaErrorMessage(t *testing.T) {
	err := NewSchemaError(CodeNoDateColumn, ErrNoDateColumn)

	assert.Equal(t, "no date column detected", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
	assert.True(t, IsSchemaError(err))
	assert.False(t, IsFitError(err))
	assert.ErrorIs(t, err, ErrNoDateColumn)
}

func TestFitErrorKeepsCause(t *testing.T) {
	err := NewFitError(CodeDegenerateSeries, ErrDegenerateSeries)

	assert.Equal(t, "model fit failed: series values are constant", err.Error())
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
	assert.True(t, IsFitError(err))
	assert.ErrorIs(t, err, ErrDegenerateSeries)
}

func TestHTTPStatusByType(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidationError(CodeInvalidHorizon, "bad"), http.StatusBadRequest},
		{NewStorageError(CodeUploadFailed, "bad"), http.StatusInternalServerError},
		{NewInternalError("bad"), http.StatusInternalServerError},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NewSchemaError(CodeEmptyTable, ErrEmptyTable)), http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrorTypeStorage, TypeOf(ErrStorageNotConnected))
	assert.Equal(t, ErrorTypeInternal, TypeOf(errors.New("boom")))
	assert.False(t, IsSchemaError(nil))
}

func TestAppErrorIsMatchesTypeAndCode(t *testing.T) {
	err := NewStorageError("STORAGE_NOT_CONNECTED", "redis storage not connected")

	assert.True(t, errors.Is(err, ErrStorageNotConnected))
	assert.False(t, errors.Is(err, ErrStorageReadFailed))
}

func TestWrapStorageError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapStorageError(cause, "s3", "WRITE")

	assert.Equal(t, "STORAGE_WRITE_FAILED", err.Code)
	assert.Equal(t, "s3 storage write failed: connection refused", err.Error())
	assert.Equal(t, "s3", err.Context["backend"])
	assert.ErrorIs(t, err, cause)
}

func TestNewStorageConfigError(t *testing.T) {
	err := NewStorageConfigError("influxdb", "url is required")

	assert.Equal(t, "influxdb storage: url is required", err.Error())
	assert.True(t, errors.Is(err, ErrStorageInvalidConfig))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(NewSchemaError(CodeNoValueColumn, ErrNoValueColumn), "req-1")
	assert.Equal(t, ErrorResponse{
		Detail:    "no numeric target column detected",
		Type:      "schema",
		Code:      CodeNoValueColumn,
		RequestID: "req-1",
	}, resp)

	resp = NewErrorResponse(errors.New("boom"), "")
	require.Equal(t, "boom", resp.Detail)
	assert.Equal(t, "internal", resp.Type)
	assert.Equal(t, CodeInternalError, resp.Code)
}
