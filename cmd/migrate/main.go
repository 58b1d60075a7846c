// Command migrate aplica o lista las migraciones embebidas del store postgres.
//
//	migrate [-config configs/config.yaml] [-dsn postgres://...] [up|status]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/securesign/internal/config"
	"github.com/dropDatabas3/securesign/internal/store/pg"
	migrations "github.com/dropDatabas3/securesign/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", "", "ruta a config.yaml (opcional)")
		envFile    = flag.String("env-file", ".env", "ruta a .env")
		dsn        = flag.String("dsn", "", "DSN postgres; pisa storage.dsn")
	)
	flag.Parse()
	_ = godotenv.Load(*envFile)

	action := "up"
	if a := flag.Arg(0); a != "" {
		action = strings.ToLower(a)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if cfg.Storage.DSN == "" {
		log.Fatal("no DSN: use -dsn, STORAGE_DSN or storage.dsn")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := pg.New(ctx, cfg.Storage.DSN, pg.PoolConfig{MaxConns: 2}, nil)
	if err != nil {
		log.Fatalf("pg: %v", err)
	}
	defer st.Close()

	if err := run(ctx, st, action, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

type migrator interface {
	Migrate(ctx context.Context, fsys fs.FS, dir string) ([]int, error)
	AppliedMigrations(ctx context.Context) (map[int]bool, error)
}

func run(ctx context.Context, m migrator, action string, out io.Writer) error {
	switch action {
	case "up":
		done, err := m.Migrate(ctx, migrations.FS, migrations.Dir)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		if len(done) == 0 {
			fmt.Fprintln(out, "Nothing to do, schema is up to date.")
			return nil
		}
		for _, v := range done {
			fmt.Fprintf(out, "applied %04d\n", v)
		}
		return nil

	case "status":
		all, err := pg.ParseMigrations(migrations.FS, migrations.Dir)
		if err != nil {
			return err
		}
		applied, err := m.AppliedMigrations(ctx)
		if err != nil {
			return err
		}
		for _, mg := range all {
			state := "pending"
			if applied[mg.Version] {
				state = "applied"
			}
			fmt.Fprintf(out, "%04d_%s\t%s\n", mg.Version, mg.Name, state)
		}
		return nil

	default:
		return fmt.Errorf("unknown action %q (up|status)", action)
	}
}
