// Package core defines the storage medium contract the document store writes
// through. A medium holds opaque byte blobs under string keys.
package core

import (
	"context"
	"errors"
)

// Driver identifies a concrete storage medium implementation.
type Driver string

const (
	// DriverFilesystem stores one file per key (default).
	DriverFilesystem Driver = "fs"
	// DriverMemory keeps blobs in process memory, typically for tests.
	DriverMemory Driver = "memory"
	// DriverSQLite stores blobs in a single SQLite table.
	DriverSQLite Driver = "sqlite"
	// DriverPostgres stores blobs as JSONB rows.
	DriverPostgres Driver = "postgres"
	// DriverS3 stores one object per key in an S3 / MinIO bucket.
	DriverS3 Driver = "s3"
)

// Medium persists whole blobs. Write replaces the previous value in a single
// call so readers never observe a partially written blob.
type Medium interface {
	// Read returns the blob stored under key, or ErrNotExist.
	Read(ctx context.Context, key string) ([]byte, error)
	// Write stores data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Driver returns the configured backend identifier.
	Driver() Driver
	// Close releases held resources.
	Close() error
}

// ErrNotExist is returned by Read when the key has never been written or was deleted.
var ErrNotExist = errors.New("medium: key does not exist")
