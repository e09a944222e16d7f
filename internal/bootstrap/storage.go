package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-sso/config"
	"github.com/target/mmk-sso/internal/adapters/memory"
	"github.com/target/mmk-sso/internal/adapters/postgres"
	redisstore "github.com/target/mmk-sso/internal/adapters/redis"
	"github.com/target/mmk-sso/internal/adapters/sqlite"
	httpx "github.com/target/mmk-sso/internal/http"
	"github.com/target/mmk-sso/internal/ports"
)

// StorageConfig contains configuration for the session storage backend.
type StorageConfig struct {
	Storage config.StorageConfig
	Redis   config.RedisConfig
	DB      config.DBConfig
	Logger  *slog.Logger
}

// Storage is an opened session storage backend.
type Storage struct {
	Backend  config.StorageBackend
	Provider httpx.StorageProvider
	closers  []func() error
}

// Close releases the backend's connections.
func (s *Storage) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenStorage opens the configured backend.
func OpenStorage(ctx context.Context, cfg StorageConfig) (*Storage, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Storage.Backend {
	case config.StorageBackendRedis:
		client, err := ConnectRedis(ctx, RedisConnectConfig{Redis: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		area := redisstore.NewStorageWithPrefix(client, cfg.Storage.KeyPrefix, cfg.Storage.TTL)
		return &Storage{
			Backend:  config.StorageBackendRedis,
			Provider: func(ns string) ports.Storage { return area.Namespace(ns) },
			closers:  []func() error{client.Close},
		}, nil

	case config.StorageBackendSQLite:
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		logger.InfoContext(ctx, "sqlite storage opened", "path", cfg.Storage.SQLitePath)
		return &Storage{
			Backend:  config.StorageBackendSQLite,
			Provider: func(ns string) ports.Storage { return db.Namespace(ns) },
			closers:  []func() error{db.Close},
		}, nil

	case config.StorageBackendPostgres:
		sqlDB, err := ConnectDB(ctx, DatabaseConfig{DBConfig: cfg.DB, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		db, err := postgres.New(ctx, sqlDB)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("open postgres storage: %w", err), sqlDB.Close())
		}
		return &Storage{
			Backend:  config.StorageBackendPostgres,
			Provider: func(ns string) ports.Storage { return db.Namespace(ns) },
			closers:  []func() error{sqlDB.Close},
		}, nil

	case config.StorageBackendMemory, "":
		backend := memory.NewBackend()
		logger.InfoContext(ctx, "using in-memory session storage")
		return &Storage{
			Backend:  config.StorageBackendMemory,
			Provider: func(ns string) ports.Storage { return backend.Namespace(ns) },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// RedisConnectConfig contains configuration for Redis connections.
type RedisConnectConfig struct {
	Redis  config.RedisConfig
	Logger *slog.Logger
}

// ConnectRedis establishes a connection to Redis.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg RedisConnectConfig) (redis.UniversalClient, error) {
	var (
		client   redis.UniversalClient
		addrDesc string
		err      error
	)

	switch {
	case cfg.Redis.UseCluster:
		client, addrDesc, err = newClusterClient(cfg.Redis)
	case cfg.Redis.UseSentinel:
		client, addrDesc, err = newSentinelClient(cfg.Redis)
	default:
		client, addrDesc, err = newDirectClient(cfg.Redis)
	}
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", redactAddr(addrDesc))
	}
	return client, nil
}

// redactAddr strips credentials from an address description.
func redactAddr(addrDesc string) string {
	if u, err := url.Parse(addrDesc); err == nil && u.User != nil {
		u.User = url.User("*")
		return u.Redacted()
	}
	if i := strings.LastIndex(addrDesc, "@"); i > -1 {
		return addrDesc[i+1:]
	}
	return addrDesc
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	addrs := normalizeAddrs(cfg.ClusterNodes)
	opts := &redis.ClusterOptions{Password: cfg.Password}

	if len(addrs) == 0 {
		fb, err := clusterFallbackFromURI(cfg.URI, cfg.Password)
		if err != nil {
			return nil, "", err
		}
		if fb.addr != "" {
			addrs = []string{fb.addr}
			opts.Username = fb.username
			opts.Password = fb.password
			opts.TLSConfig = fb.tls
		}
	}
	if len(addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}

	opts.Addrs = addrs
	return redis.NewClusterClient(opts), "cluster:" + strings.Join(addrs, ","), nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	nodes := normalizeAddrs(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    nodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}

	if isRedisURL(uri) {
		opt, err := redis.ParseURL(uri)
		if err != nil {
			return nil, "", fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), opt.Addr, nil
	}

	return redis.NewClient(&redis.Options{
		Addr:     uri,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), uri, nil
}

func normalizeAddrs(raw []string) []string {
	result := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

type clusterFallback struct {
	addr     string
	username string
	password string
	tls      *tls.Config
}

func clusterFallbackFromURI(uri, defaultPassword string) (clusterFallback, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return clusterFallback{password: defaultPassword}, nil
	}
	if !isRedisURL(trimmed) {
		return clusterFallback{addr: trimmed, password: defaultPassword}, nil
	}

	opt, err := redis.ParseURL(trimmed)
	if err != nil {
		return clusterFallback{}, fmt.Errorf("parse redis cluster url: %w", err)
	}
	password := defaultPassword
	if opt.Password != "" {
		password = opt.Password
	}
	return clusterFallback{addr: opt.Addr, username: opt.Username, password: password, tls: opt.TLSConfig}, nil
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
