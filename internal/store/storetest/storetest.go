// Package storetest contiene la batería de contrato que todo adapter de
// CredentialStore y DocumentStore debe pasar.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
)

var (
	pairOnce sync.Once
	pair     repository.KeyPair
	pairErr  error
)

// KeyPair devuelve un par 2048 compartido por todas las pruebas del proceso.
func KeyPair(t *testing.T) repository.KeyPair {
	t.Helper()
	pairOnce.Do(func() {
		pair, pairErr = keys.NewManager(keys.Config{}).GenerateKeyPair(context.Background(), 0)
	})
	require.NoError(t, pairErr)
	return pair
}

// Identity arma una identidad mínima con certificado activo.
func Identity(ref string) *repository.Identity {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &repository.Identity{
		Ref:          ref,
		Name:         "Test " + ref,
		Organization: "ACME",
		Role:         "user",
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$ZGs",
		RegisteredAt: now,
		Certificate: repository.Certificate{
			Serial:    "01:02:03:04:05:06:07:08",
			IssuedAt:  now,
			ExpiresAt: now.Add(24 * time.Hour),
			Status:    repository.CertificateActive,
		},
	}
}

// RunCredentialStore ejercita el contrato de CredentialStore sobre un store vacío.
func RunCredentialStore(t *testing.T, s repository.CredentialStore) {
	t.Helper()
	ctx := context.Background()
	kp := KeyPair(t)

	require.NoError(t, s.CreateIdentity(ctx, Identity("alice@example.com")))
	require.ErrorIs(t, s.CreateIdentity(ctx, Identity("alice@example.com")), repository.ErrConflict)

	_, err := s.GetIdentity(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.ResolvePublicKey(ctx, "alice@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound, "no key recorded yet")
	_, err = s.ResolvePublicKey(ctx, "nobody@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, s.RecordKeyPair(ctx, "alice@example.com", kp))
	require.ErrorIs(t, s.RecordKeyPair(ctx, "nobody@example.com", kp), repository.ErrNotFound)

	ex, err := keys.Export(kp)
	require.NoError(t, err)

	pub, err := s.ResolvePublicKey(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, ex.PublicPEM, pub)

	priv, err := s.ResolvePrivateKey(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, ex.PrivatePEM, priv)

	got, err := s.GetIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, ex.Fingerprint, got.Fingerprint)
	require.Equal(t, repository.AlgorithmRSASHA256, got.Algorithm)
	require.Equal(t, "ACME", got.Organization)

	require.NoError(t, s.CreateIdentity(ctx, Identity("bob@example.com")))
	list, err := s.ListIdentities(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, id := range list {
		require.Empty(t, id.PrivateKeyPEM, "list must not expose private keys")
	}

	// revocación serializada: sólo una de N llamadas concurrentes gana
	revoke := func(c *repository.Certificate) error {
		if c.Status != repository.CertificateActive {
			return repository.ErrAlreadyRevoked
		}
		c.Status = repository.CertificateRevoked
		return nil
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdateCertificate(ctx, "alice@example.com", revoke)
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			} else if !errors.Is(err, repository.ErrAlreadyRevoked) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)

	got, err = s.GetIdentity(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, repository.CertificateRevoked, got.Certificate.Status)

	_, err = s.UpdateCertificate(ctx, "nobody@example.com", revoke)
	require.ErrorIs(t, err, repository.ErrNotFound)

	// rotación: clave y certificado se escriben juntos o no se escribe nada
	refuse := func(c *repository.Certificate) error { return repository.ErrCertificateRevoked }
	_, err = s.RotateKeyPair(ctx, "bob@example.com", kp, refuse)
	require.ErrorIs(t, err, repository.ErrCertificateRevoked)
	got, err = s.GetIdentity(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Empty(t, got.Fingerprint, "refused rotation must not persist the key")
	_, err = s.ResolvePrivateKey(ctx, "bob@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	cert, err := s.RotateKeyPair(ctx, "bob@example.com", kp, func(c *repository.Certificate) error {
		c.Serial = "0A:0B:0C:0D:0E:0F:10:11"
		c.BoundFingerprint = ex.Fingerprint
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, ex.Fingerprint, cert.BoundFingerprint)
	got, err = s.GetIdentity(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, ex.Fingerprint, got.Fingerprint)
	require.Equal(t, got.Fingerprint, got.Certificate.BoundFingerprint)
	require.Equal(t, "0A:0B:0C:0D:0E:0F:10:11", got.Certificate.Serial)
	pub, err = s.ResolvePublicKey(ctx, "bob@example.com")
	require.NoError(t, err)
	require.Equal(t, ex.PublicPEM, pub)

	_, err = s.RotateKeyPair(ctx, "nobody@example.com", kp, refuse)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

// Record arma un SignatureRecord sintético.
func Record(id, digest string, at time.Time) repository.SignatureRecord {
	return repository.SignatureRecord{
		ID:                id,
		Name:              id + ".pdf",
		ContentDigest:     digest,
		SignatureValue:    "c2ln",
		Algorithm:         repository.AlgorithmRSASHA256,
		SignerRef:         "alice@example.com",
		SignerFingerprint: "AA:BB",
		SignedAt:          at.UTC().Truncate(time.Millisecond),
		Reason:            "approval",
		Location:          "Córdoba",
	}
}

// RunDocumentStore ejercita el contrato de DocumentStore sobre un store vacío.
func RunDocumentStore(t *testing.T, s repository.DocumentStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dA := "aa00000000000000000000000000000000000000000000000000000000000000"
	dB := "bb00000000000000000000000000000000000000000000000000000000000000"

	require.NoError(t, s.PutRecord(ctx, "alice", Record("r1", dA, base)))
	require.NoError(t, s.PutRecord(ctx, "alice", Record("r2", dB, base.Add(time.Hour))))
	require.ErrorIs(t, s.PutRecord(ctx, "alice", Record("r3", dA, base)), repository.ErrConflict)

	// mismo digest en otro scope es válido
	require.NoError(t, s.PutRecord(ctx, "bob", Record("r4", dA, base)))

	found, err := s.FindByDigest(ctx, "alice", dA)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "r1", found[0].ID)
	require.Equal(t, "alice", found[0].Scope)
	require.Equal(t, "Córdoba", found[0].Location)
	require.True(t, found[0].SignedAt.Equal(base))

	found, err = s.FindByDigest(ctx, "carol", dA)
	require.NoError(t, err)
	require.Empty(t, found)

	list, err := s.ListRecords(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "r2", list[0].ID, "newest first")

	n, err := s.CountRecords(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.ErrorIs(t, s.DeleteRecord(ctx, "bob", "r1"), repository.ErrNotFound, "delete is scoped")
	require.NoError(t, s.DeleteRecord(ctx, "alice", "r1"))
	require.ErrorIs(t, s.DeleteRecord(ctx, "alice", "r1"), repository.ErrNotFound)

	found, err = s.FindByDigest(ctx, "alice", dA)
	require.NoError(t, err)
	require.Empty(t, found)

	// tras borrar, el digest puede volver a registrarse
	require.NoError(t, s.PutRecord(ctx, "alice", Record("r5", dA, base.Add(2*time.Hour))))
}
