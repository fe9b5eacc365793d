// Package storage persists connector identities across restarts.
//
// One key per connector id; within the SDK's single-writer model a key is
// written on connect, read once at connector construction, and deleted on
// disconnect.
package storage

// Store is the persisted-identity backend.
//
// The interface is designed to support both in-memory and durable backends
// (file, browser-bridge localStorage, database) for different host
// environments.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)

	// Set writes the value for key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(key string) error
}
