// Package storage defines the key-value contract the account store persists through,
// plus the in-memory and file-backed implementations.
package storage

import "context"

// Store is a durable key-value store holding JSON blobs.
// A single Set is expected to be atomic; nothing else is promised.
type Store interface {
	// Get returns the value stored under key, or errs.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}
