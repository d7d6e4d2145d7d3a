// Package storage provides database abstractions.
package storage

import "errors"

// ErrKeyNotFound is returned by Get when a key does not exist.
// All backends return this sentinel so callers can distinguish
// absence from storage failure with errors.Is.
var ErrKeyNotFound = errors.New("key not found")

// DB is the interface for key-value storage.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Batch buffers writes and deletes for a single atomic commit.
// Operations are not visible until Commit returns nil.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Commit() error
}

// Batcher is implemented by backends that support atomic batches.
type Batcher interface {
	NewBatch() Batch
}
