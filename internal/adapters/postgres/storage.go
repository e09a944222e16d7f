package postgres

// Package postgres provides a Storage adapter on PostgreSQL for satellite
// fleets that already share a database.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sso_storage (
	namespace  TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	value      TEXT        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key)
)`

// DB is the schema-initialized handle shared by every namespace.
type DB struct {
	db *sql.DB
}

// New ensures the storage table exists on db.
func New(ctx context.Context, db *sql.DB) (*DB, error) {
	if db == nil {
		return nil, errors.New("postgres db is required")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &DB{db: db}, nil
}

// EnsureSchema creates the storage table. Replicas racing on first start
// may see a duplicate error from the catalog; that counts as success.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		if isConcurrentCreate(err) {
			return nil
		}
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Namespace returns the Storage for one namespace.
func (d *DB) Namespace(ns string) *Storage {
	return &Storage{db: d.db, ns: ns}
}

// Storage is a namespaced key-value area in the sso_storage table.
type Storage struct {
	db *sql.DB
	ns string
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM sso_storage WHERE namespace = $1 AND key = $2`, s.ns, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, mapError("get", err)
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("storage key cannot be empty")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sso_storage (namespace, key, value, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		s.ns, key, value,
	)
	if err != nil {
		return mapError("set", err)
	}
	return nil
}

// Delete removes every listed key in one statement.
func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sso_storage WHERE namespace = $1 AND key = ANY($2)`, s.ns, keys,
	)
	if err != nil {
		return mapError("delete", err)
	}
	return nil
}

// ErrSchemaMissing is reported when the storage table has been dropped underneath a running satellite.
var ErrSchemaMissing = errors.New("sso_storage table is missing")

func mapError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UndefinedTable:
			return fmt.Errorf("postgres %s: %w: %w", op, ErrSchemaMissing, err)
		case pgerrcode.IsConnectionException(pgErr.Code):
			return fmt.Errorf("postgres %s: connection lost: %w", op, err)
		}
	}
	return fmt.Errorf("postgres %s: %w", op, err)
}

func isConcurrentCreate(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation, pgerrcode.DuplicateTable, pgerrcode.DuplicateObject:
		return true
	}
	return false
}
