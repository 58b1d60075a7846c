package pg

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/securesign/internal/store/storetest"
	migrations "github.com/dropDatabas3/securesign/migrations/postgres"
)

func TestParseMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_b.sql": {Data: []byte("B")},
		"sql/0001_a.sql": {Data: []byte("A")},
		"sql/README.md":  {Data: []byte("ignored")},
		"sql/x_bad.sql":  {Data: []byte("ignored")},
	}
	got, err := ParseMigrations(fsys, "sql")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1, got[0].Version)
	require.Equal(t, "a", got[0].Name)
	require.Equal(t, "B", got[1].SQL)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := ParseMigrations(migrations.FS, migrations.Dir)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, 1, got[0].Version)
}

// Las pruebas de contrato corren sólo con una base real:
// SECURESIGN_TEST_PG_DSN=postgres://... go test ./internal/store/pg
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SECURESIGN_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("SECURESIGN_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := New(ctx, dsn, PoolConfig{MaxConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.Migrate(ctx, migrations.FS, migrations.Dir)
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, `TRUNCATE identity, signature_record`)
	require.NoError(t, err)
	return s
}

func TestCredentials_Contract(t *testing.T) {
	storetest.RunCredentialStore(t, openTestStore(t).Credentials())
}

func TestDocuments_Contract(t *testing.T) {
	storetest.RunDocumentStore(t, openTestStore(t).Documents())
}
