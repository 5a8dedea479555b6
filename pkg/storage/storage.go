// Package storage defines the contract shared by file deposit backends.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by backends when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Store persists opaque objects under caller-chosen keys.
type Store interface {
	// Put stores the object and returns the URL clients use to reference it.
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
