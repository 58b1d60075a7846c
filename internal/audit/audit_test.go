package audit

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

func TestMemorySink_KeepsNewestN(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySink(3)
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Append(ctx, New(repository.EventDocumentSigned, "a", fmt.Sprintf("doc-%d", i), StatusSuccess)))
	}
	got, err := m.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "doc-5", got[0].Description)
	require.Equal(t, "doc-3", got[2].Description)

	got, _ = m.Recent(ctx, 1)
	require.Len(t, got, 1)
	require.Equal(t, "doc-5", got[0].Description)

	empty, _ := NewMemorySink(0).Recent(ctx, 10)
	require.Empty(t, empty)
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer s.Close()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Append(ctx, New(repository.EventUserRegistered, "alice@example.com", fmt.Sprintf("e%d", i), StatusSuccess)))
	}
	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e3", got[0].Description)
	require.Equal(t, repository.EventUserRegistered, got[0].Kind)
	require.False(t, got[0].Timestamp.IsZero())

	_, err = OpenSQLite("  ")
	require.Error(t, err)
}

type failingSink struct{}

func (failingSink) Append(context.Context, repository.AuditEvent) error { return errors.New("disk full") }

func TestTee(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.InfoLevel)
	mem := NewMemorySink(10)
	tee := NewTee(NewLogSink(zap.New(core)), mem)

	require.NoError(t, tee.Append(ctx, New(repository.EventCertificateRevoked, "op", "revoked", StatusSuccess)))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "CERTIFICATE_REVOKED", logs.All()[0].ContextMap()["event_type"])

	got, err := tee.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)

	// un sink caído no impide que los demás reciban el evento
	tee = NewTee(failingSink{}, mem)
	require.Error(t, tee.Append(ctx, New("X", "a", "b", StatusFailure)))
	got, _ = mem.Recent(ctx, 0)
	require.Len(t, got, 2)

	_, err = NewTee(NewLogSink(zap.NewNop())).Recent(ctx, 1)
	require.ErrorIs(t, err, ErrNotReadable)
	require.NoError(t, tee.Close())
}
