// Package medium re-exports the storage medium contract and selects a concrete
// backend from configuration.
package medium

import (
	"aeracore/internal/medium/core"
)

type (
	// Driver identifies a medium backend.
	Driver = core.Driver
	// Medium is the interface implemented by storage backends.
	Medium = core.Medium
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
	// DriverSQLite is the embedded SQLite driver.
	DriverSQLite = core.DriverSQLite
	// DriverPostgres is the Postgres driver.
	DriverPostgres = core.DriverPostgres
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
)

// ErrNotExist is returned when a key has no stored value.
var ErrNotExist = core.ErrNotExist
