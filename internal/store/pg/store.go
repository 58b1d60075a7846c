// Package pg implementa los stores del dominio sobre PostgreSQL (pgx/v5).
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/security/secretbox"
)

// PoolConfig ajusta el pool. Los ceros dejan los defaults de pgxpool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// Store agrupa el pool y los dos stores del dominio.
type Store struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

// New abre el pool. El ping inicial no es bloqueante: si la base no responde
// se loguea y el servicio arranca igual (readyz lo reporta).
func New(ctx context.Context, dsn string, cfg PoolConfig, box *secretbox.Box) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pcfg.MaxConnIdleTime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	log := logger.From(ctx).With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg_pool_startup_ping_failed", logger.Err(err))
	} else {
		log.Info("pg_pool_ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool, box: box}, nil
}

// Pool expone el pool interno (migraciones).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Credentials devuelve el CredentialStore sobre este pool.
func (s *Store) Credentials() *Credentials { return &Credentials{pool: s.pool, box: s.box} }

// Documents devuelve el DocumentStore sobre este pool.
func (s *Store) Documents() *Documents { return &Documents{pool: s.pool} }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isNoRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

var _ repository.CredentialStore = (*Credentials)(nil)
var _ repository.DocumentStore = (*Documents)(nil)
