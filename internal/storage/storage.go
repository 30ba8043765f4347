// Package storage is the upload/blob collaborator. The rest of the
// service references payloads only by the opaque handle it returns and
// never interprets payload bytes.
package storage

import (
	"context"
	"io"
)

// Handle is the opaque reference to a stored payload: a storage key
// plus a retrievable URL.
type Handle struct {
	Key string
	URL string
}

// Store persists uploaded payloads.
type Store interface {
	// Save writes the payload and returns its handle. The name is only
	// a hint for the generated key.
	Save(ctx context.Context, name string, payload io.Reader, size int64) (Handle, error)
	// ResolveURL returns a fresh retrievable URL for an existing key.
	ResolveURL(ctx context.Context, key string) (string, error)
}
