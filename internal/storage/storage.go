package storage

import (
	"context"
	"io"
)

// Storage persists attachment content by name. Names are content hashes, so
// writes are idempotent and stored objects are never mutated. Hashing is the
// caller's job; the store never recomputes or deduplicates.
type Storage interface {
	// Save writes the content under the given name.
	Save(ctx context.Context, name string, r io.Reader) error

	// Open returns the content stored under the given name.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
