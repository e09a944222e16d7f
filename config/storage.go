package config

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/target/mmk-sso/internal/errors"
)

// StorageBackend selects where session entries are kept.
type StorageBackend string

const (
	// StorageBackendMemory keeps entries in process memory.
	StorageBackendMemory StorageBackend = "memory"
	// StorageBackendRedis shares entries between satellite replicas.
	StorageBackendRedis StorageBackend = "redis"
	// StorageBackendSQLite persists entries in a local database file.
	StorageBackendSQLite StorageBackend = "sqlite"
	// StorageBackendPostgres shares entries through a PostgreSQL table.
	StorageBackendPostgres StorageBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageBackend.
func (b *StorageBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis", "sqlite", "postgres":
		*b = StorageBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageBackend: %q (valid options: memory, redis, sqlite, postgres)", v)
	}
}

// StorageConfig configures the session storage area.
type StorageConfig struct {
	Backend StorageBackend `env:"STORAGE_BACKEND" envDefault:"memory"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `env:"STORAGE_SQLITE_PATH" envDefault:"data/sso.db"`

	// TTL bounds how long a redis entry outlives its last write. Zero keeps entries forever.
	TTL time.Duration `env:"STORAGE_TTL" envDefault:"720h"`

	// KeyPrefix namespaces redis keys.
	KeyPrefix string `env:"STORAGE_KEY_PREFIX" envDefault:"sso:"`
}

// Sanitize applies guardrails to storage configuration values.
func (s *StorageConfig) Sanitize() {
	if s.Backend == "" {
		s.Backend = StorageBackendMemory
	}
	if s.TTL < 0 {
		s.TTL = 0
	}
	s.SQLitePath = strings.TrimSpace(s.SQLitePath)
}

// Validate reports storage settings the selected backend cannot run with.
func (s *StorageConfig) Validate() error {
	if s.Backend == StorageBackendSQLite && s.SQLitePath == "" {
		return apperrors.ValidationField("STORAGE_SQLITE_PATH", "sqlite backend requires a database path")
	}
	return nil
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelPort       string   `env:"SENTINEL_PORT"        envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
