package storage

import (
	"context"
	"io"
	"time"

	"github.com/inferloop/tsforecast/pkg/interfaces"
)

// OperationRecorder receives one observation per storage call
type OperationRecorder interface {
	RecordStorageOperation(backend, operation, status string, duration time.Duration)
}

// InstrumentedUploadStore records the outcome and latency of Save and Load
type InstrumentedUploadStore struct {
	interfaces.UploadStore
	recorder OperationRecorder
}

// NewInstrumentedUploadStore wraps store so every Save and Load is recorded
func NewInstrumentedUploadStore(store interfaces.UploadStore, recorder OperationRecorder) *InstrumentedUploadStore {
	return &InstrumentedUploadStore{UploadStore: store, recorder: recorder}
}

// Save stores data and records the call
func (s *InstrumentedUploadStore) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	started := time.Now()
	key, err := s.UploadStore.Save(ctx, name, data)
	s.record("save", err, started)
	return key, err
}

// Load reads a stored upload and records the call
func (s *InstrumentedUploadStore) Load(ctx context.Context, key string) (io.ReadCloser, error) {
	started := time.Now()
	reader, err := s.UploadStore.Load(ctx, key)
	s.record("load", err, started)
	return reader, err
}

func (s *InstrumentedUploadStore) record(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.recorder.RecordStorageOperation(s.Backend(), operation, status, time.Since(started))
}
