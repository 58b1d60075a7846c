// Package store arma los adapters de CredentialStore y DocumentStore según la
// configuración y agrega el cache de claves públicas delante del credential store.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/security/secretbox"
	"github.com/dropDatabas3/securesign/internal/store/fs"
	"github.com/dropDatabas3/securesign/internal/store/memory"
	"github.com/dropDatabas3/securesign/internal/store/pg"
	migrations "github.com/dropDatabas3/securesign/migrations/postgres"
)

type Config struct {
	Driver   string // memory | fs | postgres
	DSN      string
	Dir      string // raíz del driver fs
	Migrate  bool   // aplicar migraciones al abrir (postgres)
	Postgres struct {
		MaxConns        int32
		MinConns        int32
		ConnMaxLifetime time.Duration
	}
}

// Stores agrupa los adapters abiertos.
type Stores struct {
	Driver      string
	Credentials repository.CredentialStore
	Documents   repository.DocumentStore
	Ping        func(ctx context.Context) error
	Close       func() error
}

// Open abre los stores del driver configurado. box sella las claves privadas
// en reposo (fs y postgres); puede ser nil.
func Open(ctx context.Context, cfg Config, box *secretbox.Box) (*Stores, error) {
	noop := func(context.Context) error { return nil }

	switch d := strings.ToLower(cfg.Driver); d {
	case "", "memory", "mem":
		return &Stores{
			Driver:      "memory",
			Credentials: memory.NewCredentials(),
			Documents:   memory.NewDocuments(),
			Ping:        noop,
			Close:       func() error { return nil },
		}, nil

	case "fs", "file":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("store: fs driver requires a directory")
		}
		creds, err := fs.NewCredentials(cfg.Dir, box)
		if err != nil {
			return nil, err
		}
		docs, err := fs.NewDocuments(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Driver:      "fs",
			Credentials: creds,
			Documents:   docs,
			Ping:        noop,
			Close:       func() error { return nil },
		}, nil

	case "postgres", "pg", "postgresql":
		s, err := pg.New(ctx, cfg.DSN, pg.PoolConfig{
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		}, box)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if _, err := s.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
				s.Close()
				return nil, fmt.Errorf("store: migrate: %w", err)
			}
		}
		return &Stores{
			Driver:      "postgres",
			Credentials: s.Credentials(),
			Documents:   s.Documents(),
			Ping:        s.Ping,
			Close:       func() error { s.Close(); return nil },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
