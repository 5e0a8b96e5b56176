package graph

import (
	"context"
	"io"
)

// Store is the backing persistence surface. The engine issues nothing
// beyond this interface: get/put/scan/snapshot plus an atomic whole-state
// replace, which is what makes commit all-or-nothing.
// Implementations: MemStore (default, testing), BadgerStore (embedded
// persistent).
type Store interface {
	io.Closer

	// Get returns the value for key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a single key/value pair.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// Scan visits every key with the given prefix in unspecified order.
	// A non-nil error from fn aborts the scan and is returned.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Snapshot returns a point-in-time copy of the full key space.
	Snapshot(ctx context.Context) (map[string][]byte, error)

	// ReplaceAll atomically replaces the entire key space with entries.
	// Either every entry is visible and every old key is gone, or the
	// store is untouched and the error wraps ErrCommitConflict.
	ReplaceAll(ctx context.Context, entries map[string][]byte) error
}
