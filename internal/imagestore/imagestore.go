// Package imagestore persists raw image bytes and hands back opaque references
// that the entity store records alongside inspections and baselines.
package imagestore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("image not found")

// Store saves uploaded image bytes under a generated name and returns them by
// reference. Implementations must be safe for concurrent use.
type Store interface {
	// Save writes the image and returns its reference. originalName is only
	// used to preserve the file extension.
	Save(ctx context.Context, originalName string, data []byte) (string, error)
	// Load returns the raw bytes for a previously returned reference.
	Load(ctx context.Context, ref string) ([]byte, error)
	// Remove deletes the stored image. Removing a missing image is not an error.
	Remove(ctx context.Context, ref string) error
}
