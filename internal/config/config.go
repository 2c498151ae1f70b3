// Package config loads process settings. Sources are applied in order: a .env
// file, an optional YAML file, then AERA_* environment variables over the
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"aeracore/internal/adapters/httpapi"
	"aeracore/internal/medium"
	"aeracore/internal/mirror"
	"aeracore/internal/persistence"
)

// Config is the full process configuration.
type Config struct {
	Storage StorageConfig        `yaml:"storage"`
	Sync    SyncConfig           `yaml:"sync"`
	Peer    mirror.Config        `yaml:"peer"`
	Redis   RedisConfig          `yaml:"redis"`
	HTTP    httpapi.ServerConfig `yaml:"http"`
	Log     LogConfig            `yaml:"log"`
}

// StorageConfig selects the medium and the document key.
type StorageConfig struct {
	Driver      string          `yaml:"driver"`
	FSRoot      string          `yaml:"fs_root"`
	SQLitePath  string          `yaml:"sqlite_path"`
	PostgresDSN string          `yaml:"postgres_dsn"`
	S3          medium.S3Config `yaml:"s3"`
	Key         string          `yaml:"key"`
	Conflict    string          `yaml:"conflict"`
	// Watch publishes change events when another process rewrites the fs
	// document.
	Watch bool `yaml:"watch"`
}

// SyncConfig tunes the reconciler and connectivity probing.
type SyncConfig struct {
	Delay         time.Duration `yaml:"delay"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	StartOffline  bool          `yaml:"start_offline"`
}

// RedisConfig enables the cross-process change bridge when Addr is set.
type RedisConfig struct {
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// LogConfig selects the log level and encoding.
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:     string(medium.DriverFilesystem),
			FSRoot:     "./aeradata",
			SQLitePath: "aera.db",
			Key:        persistence.DefaultKey,
			Conflict:   string(persistence.LastWriterWins),
		},
		Sync: SyncConfig{
			Delay:         1500 * time.Millisecond,
			ProbeInterval: 15 * time.Second,
		},
		Peer: mirror.Config{
			Timeout: 10 * time.Second,
			RPS:     5,
			Burst:   10,
		},
		Redis: RedisConfig{Channel: "aera:changes"},
		HTTP:  httpapi.DefaultServerConfig(),
		Log:   LogConfig{Level: "info", Encoding: "json"},
	}
}

// Load builds the configuration. path names an optional YAML file; when empty
// AERA_CONFIG is consulted. A missing .env file is ignored.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Default()
	if path == "" {
		path = os.Getenv("AERA_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("AERA_STORAGE_DRIVER", &cfg.Storage.Driver)
	str("AERA_FS_ROOT", &cfg.Storage.FSRoot)
	str("AERA_SQLITE_PATH", &cfg.Storage.SQLitePath)
	str("AERA_POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("AERA_S3_BUCKET", &cfg.Storage.S3.Bucket)
	str("AERA_S3_REGION", &cfg.Storage.S3.Region)
	str("AERA_S3_PREFIX", &cfg.Storage.S3.Prefix)
	str("AERA_S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	str("AERA_S3_ACCESS_KEY_ID", &cfg.Storage.S3.AccessKeyID)
	str("AERA_S3_SECRET_ACCESS_KEY", &cfg.Storage.S3.SecretAccessKey)
	boolean("AERA_S3_PATH_STYLE", &cfg.Storage.S3.PathStyle)
	str("AERA_STORAGE_KEY", &cfg.Storage.Key)
	str("AERA_CONFLICT_POLICY", &cfg.Storage.Conflict)
	boolean("AERA_WATCH", &cfg.Storage.Watch)

	dur("AERA_SYNC_DELAY", &cfg.Sync.Delay)
	dur("AERA_PROBE_INTERVAL", &cfg.Sync.ProbeInterval)
	dur("AERA_PROBE_TIMEOUT", &cfg.Sync.ProbeTimeout)
	boolean("AERA_START_OFFLINE", &cfg.Sync.StartOffline)

	str("AERA_PEER_URL", &cfg.Peer.BaseURL)
	dur("AERA_PEER_TIMEOUT", &cfg.Peer.Timeout)
	if v, ok := lookup("AERA_PEER_RPS"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("AERA_PEER_RPS: %w", err))
		} else {
			cfg.Peer.RPS = f
		}
	}
	integer("AERA_PEER_BURST", &cfg.Peer.Burst)

	str("AERA_REDIS_ADDR", &cfg.Redis.Addr)
	str("AERA_REDIS_CHANNEL", &cfg.Redis.Channel)
	str("AERA_HTTP_ADDR", &cfg.HTTP.Addr)
	str("AERA_LOG_LEVEL", &cfg.Log.Level)
	str("AERA_LOG_ENCODING", &cfg.Log.Encoding)
	return errors.Join(errs...)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	switch medium.Driver(c.Storage.Driver) {
	case medium.DriverFilesystem, medium.DriverMemory, medium.DriverSQLite, medium.DriverPostgres, medium.DriverS3:
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	if medium.Driver(c.Storage.Driver) == medium.DriverPostgres && c.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn: required for the postgres driver"))
	}
	if medium.Driver(c.Storage.Driver) == medium.DriverS3 && c.Storage.S3.Bucket == "" {
		errs = append(errs, errors.New("storage.s3.bucket: required for the s3 driver"))
	}
	if c.Storage.Watch && medium.Driver(c.Storage.Driver) != medium.DriverFilesystem {
		errs = append(errs, errors.New("storage.watch: only supported by the fs driver"))
	}
	if _, err := persistence.ParseConflictPolicy(c.Storage.Conflict); err != nil {
		errs = append(errs, fmt.Errorf("storage.conflict: %w", err))
	}
	if c.Sync.Delay < 0 || c.Sync.ProbeInterval < 0 || c.Sync.ProbeTimeout < 0 {
		errs = append(errs, errors.New("sync: durations must not be negative"))
	}
	if c.Peer.RPS < 0 || c.Peer.Burst < 0 {
		errs = append(errs, errors.New("peer: rps and burst must not be negative"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.encoding: unknown encoding %q", c.Log.Encoding))
	}
	return errors.Join(errs...)
}

// Medium converts the storage section for medium.Open.
func (c Config) Medium() medium.Config {
	return medium.Config{
		Driver:      medium.Driver(c.Storage.Driver),
		FSRoot:      c.Storage.FSRoot,
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		S3:          c.Storage.S3,
	}
}

// ConflictPolicy returns the parsed save conflict policy.
func (c Config) ConflictPolicy() persistence.ConflictPolicy {
	p, _ := persistence.ParseConflictPolicy(c.Storage.Conflict)
	return p
}
