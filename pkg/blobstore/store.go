package blobstore

import (
	"context"
	"errors"
	"io"
)

var (
	ErrObjectNotFound = errors.New("object_not_found")
	ErrInvalidKey     = errors.New("invalid_object_key")
)

// Store is the object-store contract the rest of the service is written
// against. All state lives behind this interface, so handlers stay
// stateless and tests can inject the in-memory backend.
type Store interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Head(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// ReadAll fetches a whole object into memory. Meant for the small JSON
// records (metadata, auth, rate-limit), not for archives.
func ReadAll(ctx context.Context, store Store, key string) ([]byte, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}
