package storage

import "context"

// Collaborator is the narrow storage interface the engine hands finished
// artifacts to. The surrounding application decides the actual backend; the
// engine never hardcodes one.
type Collaborator interface {
	// Put stores bytes under a path and returns the stored location.
	Put(ctx context.Context, path string, data []byte) (string, error)

	// Get returns the bytes stored under a path.
	Get(ctx context.Context, path string) ([]byte, error)

	// Delete removes a path, reporting whether it existed.
	Delete(ctx context.Context, path string) (bool, error)

	// Exists reports whether a path is stored.
	Exists(ctx context.Context, path string) (bool, error)
}
