// Package persistence defines the storage contract for canvas documents and
// the standardized errors implementations return.
package persistence

import (
	"context"

	"github.com/dukex/canvasflow/pkg/canvas"
)

// Store loads and saves canvas documents. The key is the workspace key: the
// identity of one open canvas document.
type Store interface {
	// Load reads and validates the document for a workspace key.
	Load(ctx context.Context, key string) (*canvas.Document, error)

	// Save persists the document atomically.
	Save(ctx context.Context, key string, doc *canvas.Document) error

	// ReadAttachment returns the content a file node references, resolved
	// relative to the store root.
	ReadAttachment(ctx context.Context, path string) (string, error)

	// HealthCheck verifies the store is usable.
	HealthCheck(ctx context.Context) error

	// Close releases any held resources.
	Close(ctx context.Context) error
}
