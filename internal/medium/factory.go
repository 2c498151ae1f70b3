package medium

import (
	"context"
	"fmt"

	fsmedium "aeracore/internal/infra/medium/fs"
	memorymedium "aeracore/internal/infra/medium/memory"
	pgmedium "aeracore/internal/infra/medium/postgres"
	s3medium "aeracore/internal/infra/medium/s3"
	sqlitemedium "aeracore/internal/infra/medium/sqlite"
)

// S3Config configures the S3-compatible driver.
type S3Config = s3medium.Config

// Config selects and configures a storage medium.
type Config struct {
	// Driver is one of fs|memory|sqlite|postgres|s3 (default fs).
	Driver Driver
	// FSRoot is the directory used by the fs driver (default ./aeradata).
	FSRoot string
	// SQLitePath is the database file used by the sqlite driver (default aera.db).
	SQLitePath string
	// PostgresDSN is the connection string used by the postgres driver.
	PostgresDSN string
	// S3 configures the s3 driver.
	S3 S3Config
}

// Open constructs the medium selected by cfg.
func Open(ctx context.Context, cfg Config) (Medium, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fsmedium.New(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite:
		return sqlitemedium.New(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return pgmedium.New(ctx, cfg.PostgresDSN)
	case DriverS3:
		return s3medium.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// NewMemory returns an in-memory medium suitable for tests.
func NewMemory() Medium { return memorymedium.New() }

// NewS3MockForTests returns an s3 medium backed by an in-memory fake transport.
func NewS3MockForTests() Medium { return s3medium.NewMockForTests() }

// LocalPath returns the file backing key when m keeps keys as local files.
func LocalPath(m Medium, key string) (string, bool) {
	local, ok := m.(interface {
		PathFor(key string) (string, error)
	})
	if !ok {
		return "", false
	}
	path, err := local.PathFor(key)
	if err != nil {
		return "", false
	}
	return path, true
}
