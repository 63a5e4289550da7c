// Package kv defines the minimal ordered byte key-value engine primitive that
// StorageEngine is built on, with a badger-backed default implementation.
//
// The spec treats the underlying LSM/object-store engine (SlateDB in the original
// design) as an external collaborator and specifies only the primitive's shape: get,
// put, delete, atomic write batches, native per-key TTL, range iteration in byte order,
// and compaction hooks. badger is the closest real analog available in the reference
// pack (github.com/dgraph-io/badger/v4) and is wired in as the concrete Engine.
package kv

import (
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("kv: key not found")

// Engine is one ordered byte keyspace (e.g. one of string_db, hash_db, list_db, set_db,
// zset_db for a single shard).
type Engine interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	SetWithTTL(key, value []byte, ttl time.Duration) error
	Delete(key []byte) error

	// NewWriteBatch starts an atomic batch of writes against this engine only.
	NewWriteBatch() WriteBatch

	// NewIterator returns an iterator over all keys sharing prefix, in ascending
	// byte-lexicographic order.
	NewIterator(prefix []byte) Iterator

	// RunCompaction invokes fn once per live key in the engine as part of a background
	// compaction pass; fn returns true to keep the record, false to drop it. This is the
	// hook CompactionFilter registers against.
	RunCompaction(fn func(key []byte) bool) error

	Close() error
}

// WriteBatch accumulates writes for atomic commit against one Engine.
type WriteBatch interface {
	Set(key, value []byte)
	SetWithTTL(key, value []byte, ttl time.Duration)
	Delete(key []byte)
	Commit() error
}

// Iterator walks keys sharing a prefix in ascending byte order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close()
}
