package interfaces

import (
	"context"
	"io"

	"github.com/inferloop/tsforecast/pkg/models"
)

// Storage defines the lifecycle shared by every storage backend
type Storage interface {
	// Connect establishes connection to the storage backend
	Connect(ctx context.Context) error

	// Close closes the connection and cleans up resources
	Close() error

	// Ping tests the connection
	Ping(ctx context.Context) error
}

// UploadStore keeps uploaded and cleaned files. It replaces a process wide
// data directory and is injected into whoever needs it.
type UploadStore interface {
	Storage

	// Save stores data under a key derived from name and returns the key
	Save(ctx context.Context, name string, data io.Reader) (string, error)

	// Load returns the content stored under key
	Load(ctx context.Context, key string) (io.ReadCloser, error)

	// Backend returns the backend name
	Backend() string
}

// SeriesSource reads an already canonical series from a time series store
type SeriesSource interface {
	Storage

	// Fetch returns the points selected by query ordered by timestamp
	Fetch(ctx context.Context, query *models.SeriesQuery) (*models.Series, error)

	// Backend returns the backend name
	Backend() string
}
