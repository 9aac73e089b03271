// Package store persists memos as string-keyed JSON blobs over a pluggable
// key-value backend.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Backend is a flat string-keyed blob store. Get returns ErrNotFound for a
// missing key; deleting a missing key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks backend reachability when the backend supports it.
func Ping(ctx context.Context, backend Backend) error {
	if pinger, ok := backend.(Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
