package docsign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/certificate"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/security/password"
	"github.com/dropDatabas3/securesign/internal/store/memory"
	"github.com/dropDatabas3/securesign/internal/verification"
)

type fixture struct {
	svc   *Service
	creds *memory.Credentials
	docs  *memory.Documents
	audit *audit.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		creds: memory.NewCredentials(),
		docs:  memory.NewDocuments(),
		audit: audit.NewMemorySink(0),
	}
	svc, err := New(Deps{
		Credentials:    f.creds,
		Documents:      f.docs,
		Audit:          f.audit,
		PasswordParams: password.Fast,
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) register(t *testing.T, email string) *Registration {
	t.Helper()
	reg, err := f.svc.Register(context.Background(), RegisterInput{
		Email:    email,
		Password: "secret123",
		Name:     "Test User",
	})
	require.NoError(t, err)
	return reg
}

func (f *fixture) sign(t *testing.T, ref, content string) *repository.SignatureRecord {
	t.Helper()
	rec, err := f.svc.SignDocument(context.Background(), SignInput{
		Identity: ref,
		Name:     content + ".txt",
		Content:  hasher.Text(content),
		Reason:   "approval",
		Location: "Buenos Aires",
	})
	require.NoError(t, err)
	return rec
}

func TestNew_RequiresStores(t *testing.T) {
	_, err := New(Deps{})
	require.Error(t, err)
}

func TestEndToEnd_Invoice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "Alice@Example.com")
	require.Equal(t, "alice@example.com", reg.Ref)
	require.NotEmpty(t, reg.PrivateKeyPEM)
	require.Equal(t, repository.CertificateActive, reg.Certificate.Status)
	require.Equal(t, reg.Fingerprint, reg.Certificate.BoundFingerprint)

	rec := f.sign(t, reg.Ref, "invoice-2025")
	require.Equal(t, reg.Fingerprint, rec.SignerFingerprint)
	require.Equal(t, reg.PublicKeyPEM, rec.SignerPublicKey)

	out, err := f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("invoice-2025"))
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Equal(t, reg.Fingerprint, out.SignerFingerprint)
	require.Equal(t, "approval", out.Reason)
	require.Equal(t, "Buenos Aires", out.Location)
	require.Equal(t, rec.SignedAt, out.SignedAt)

	// el mismo contenido llegando como data URL verifica igual
	out, err = f.svc.VerifyDocument(ctx, reg.Ref, hasher.DataURL("data:text/plain;base64,aW52b2ljZS0yMDI1"))
	require.NoError(t, err)
	require.True(t, out.Valid)

	out, err = f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("invoice-2026"))
	require.NoError(t, err)
	require.False(t, out.Valid)
	require.Equal(t, verification.CauseNotFound, out.Cause)

	// firma corrupta
	bad := *rec
	bad.ID = "corrupted"
	if bad.SignatureValue[0] == 'A' {
		bad.SignatureValue = "B" + bad.SignatureValue[1:]
	} else {
		bad.SignatureValue = "A" + bad.SignatureValue[1:]
	}
	require.NoError(t, f.docs.DeleteRecord(ctx, reg.Ref, rec.ID))
	require.NoError(t, f.docs.PutRecord(ctx, reg.Ref, bad))

	out, err = f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("invoice-2025"))
	require.NoError(t, err)
	require.False(t, out.Valid)
	require.Equal(t, verification.CauseSignatureMismatch, out.Cause)

	events, err := f.svc.AuditLog(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, repository.EventDocumentVerified, events[0].Kind)
	require.Equal(t, audit.StatusFailure, events[0].Status)
	require.Equal(t, repository.EventUserRegistered, events[len(events)-1].Kind)
}

func TestVerifyDocument_OtherScopeIsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")
	f.sign(t, reg.Ref, "contract")

	out, err := f.svc.VerifyDocument(ctx, "bob@example.com", hasher.Text("contract"))
	require.NoError(t, err)
	require.Equal(t, verification.CauseNotFound, out.Cause)
}

func TestRegister_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cases := map[string]RegisterInput{
		"bad email":      {Email: "not-an-email", Password: "secret123"},
		"short password": {Email: "a@b.co", Password: "123"},
		"unknown role":   {Email: "a@b.co", Password: "secret123", Role: "root"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Register(ctx, in)
			require.ErrorIs(t, err, repository.ErrInvalidInput)
		})
	}

	f.register(t, "dup@example.com")
	_, err := f.svc.Register(ctx, RegisterInput{Email: "DUP@example.com", Password: "secret123"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")

	id, err := f.svc.Authenticate(ctx, "ALICE@example.com", "secret123")
	require.NoError(t, err)
	require.Equal(t, reg.Ref, id.Ref)
	require.Empty(t, id.PrivateKeyPEM)

	_, err = f.svc.Authenticate(ctx, reg.Ref, "wrong")
	require.ErrorIs(t, err, repository.ErrInvalidCredentials)
	_, err = f.svc.Authenticate(ctx, "ghost@example.com", "secret123")
	require.ErrorIs(t, err, repository.ErrInvalidCredentials)
}

func TestAuthenticate_UnknownIdentityPaysArgon2(t *testing.T) {
	f := newFixture(t)
	// el hash de relleno usa los mismos parámetros y es verificable: Verify
	// no corta antes de derivar la clave
	require.Contains(t, f.svc.dummyHash, "$m=1024,t=1,p=1$")
	require.True(t, password.Verify(dummyPassword, f.svc.dummyHash))
	require.False(t, password.Verify("secret123", f.svc.dummyHash))

	_, err := f.svc.Authenticate(context.Background(), "ghost@example.com", dummyPassword)
	require.ErrorIs(t, err, repository.ErrInvalidCredentials)
}

func TestCertificate_ReportsExpiry(t *testing.T) {
	ctx := context.Background()
	issued := time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)
	clock := issued
	now := func() time.Time { return clock }
	svc, err := New(Deps{
		Credentials:    memory.NewCredentials(),
		Documents:      memory.NewDocuments(),
		Audit:          audit.NewMemorySink(0),
		Certs:          certificate.New(certificate.Config{Now: now}),
		PasswordParams: password.Fast,
		Now:            now,
	})
	require.NoError(t, err)
	reg, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 2, 28, 9, 0, 0, 0, time.UTC), reg.Certificate.ExpiresAt)

	view, err := svc.Certificate(ctx, reg.Ref)
	require.NoError(t, err)
	require.False(t, view.Expired)

	clock = issued.AddDate(2, 0, 1)
	view, err = svc.Certificate(ctx, reg.Ref)
	require.NoError(t, err)
	require.True(t, view.Expired)
	require.True(t, view.Active(), "expiry is informational")
}

func TestSignDocument_Errors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")

	_, err := f.svc.SignDocument(ctx, SignInput{Identity: reg.Ref, Content: hasher.Text("x"), Location: "here"})
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = f.svc.SignDocument(ctx, SignInput{Identity: "ghost@example.com", Content: hasher.Text("x"), Reason: "r", Location: "l"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.svc.SignDocument(ctx, SignInput{Identity: reg.Ref, Content: hasher.DataURL("nope"), Reason: "r", Location: "l"})
	require.ErrorIs(t, err, repository.ErrUnsupportedInputShape)

	f.sign(t, reg.Ref, "same bytes")
	_, err = f.svc.SignDocument(ctx, SignInput{Identity: reg.Ref, Content: hasher.Bytes([]byte("same bytes")), Reason: "r", Location: "l"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestRevokeCertificate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")
	f.sign(t, reg.Ref, "before revoke")

	cert, err := f.svc.RevokeCertificate(ctx, "operator", reg.Ref)
	require.NoError(t, err)
	require.Equal(t, repository.CertificateRevoked, cert.Status)
	require.NotNil(t, cert.RevokedAt)
	require.Equal(t, reg.Certificate.Serial, cert.Serial)

	_, err = f.svc.RevokeCertificate(ctx, "operator", reg.Ref)
	require.ErrorIs(t, err, repository.ErrAlreadyRevoked)

	_, err = f.svc.SignDocument(ctx, SignInput{Identity: reg.Ref, Content: hasher.Text("after"), Reason: "r", Location: "l"})
	require.ErrorIs(t, err, repository.ErrCertificateRevoked)

	_, err = f.svc.RotateKeys(ctx, reg.Ref, 0)
	require.ErrorIs(t, err, repository.ErrCertificateRevoked)

	// la historia firmada sigue verificando
	out, err := f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("before revoke"))
	require.NoError(t, err)
	require.True(t, out.Valid)

	got, err := f.svc.Certificate(ctx, reg.Ref)
	require.NoError(t, err)
	require.Equal(t, repository.CertificateRevoked, got.Status)

	st, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Identities: 1, RevokedCertificates: 1, Documents: 1}, st)
}

func TestRotateKeys_KeepsHistoryVerifiable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")
	old := f.sign(t, reg.Ref, "signed with first key")

	rot, err := f.svc.RotateKeys(ctx, reg.Ref, 0)
	require.NoError(t, err)
	require.NotEqual(t, reg.Fingerprint, rot.Fingerprint)
	require.NotEqual(t, reg.Certificate.Serial, rot.Certificate.Serial)
	require.Equal(t, rot.Fingerprint, rot.Certificate.BoundFingerprint)

	out, err := f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("signed with first key"))
	require.NoError(t, err)
	require.True(t, out.Valid)
	require.Equal(t, old.SignerFingerprint, out.SignerFingerprint)
	require.Equal(t, verification.KeySourcePinned, out.KeySource)

	fresh := f.sign(t, reg.Ref, "signed with second key")
	require.Equal(t, rot.Fingerprint, fresh.SignerFingerprint)

	cert, err := f.svc.Certificate(ctx, reg.Ref)
	require.NoError(t, err)
	require.Equal(t, rot.Certificate.Serial, cert.Serial)
}

// revokingCreds revoca el certificado justo antes de la mutación de rotación,
// entre el chequeo optimista de RotateKeys y la escritura.
type revokingCreds struct {
	*memory.Credentials
	before func()
}

func (r *revokingCreds) RotateKeyPair(ctx context.Context, ref string, kp repository.KeyPair, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	r.before()
	return r.Credentials.RotateKeyPair(ctx, ref, kp, fn)
}

func TestRotateKeys_RevokedMidRotationKeepsKeyAndCertBound(t *testing.T) {
	ctx := context.Background()
	creds := &revokingCreds{Credentials: memory.NewCredentials()}
	svc, err := New(Deps{
		Credentials:    creds,
		Documents:      memory.NewDocuments(),
		Audit:          audit.NewMemorySink(0),
		PasswordParams: password.Fast,
	})
	require.NoError(t, err)
	reg, err := svc.Register(ctx, RegisterInput{Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	creds.before = func() {
		_, err := svc.RevokeCertificate(ctx, "admin@example.com", reg.Ref)
		require.NoError(t, err)
	}
	_, err = svc.RotateKeys(ctx, reg.Ref, 0)
	require.ErrorIs(t, err, repository.ErrCertificateRevoked)

	id, err := creds.GetIdentity(ctx, reg.Ref)
	require.NoError(t, err)
	require.Equal(t, repository.CertificateRevoked, id.Certificate.Status)
	require.Equal(t, reg.Fingerprint, id.Fingerprint, "key must not change when rotation loses the race")
	require.Equal(t, id.Fingerprint, id.Certificate.BoundFingerprint)

	priv, err := creds.ResolvePrivateKey(ctx, reg.Ref)
	require.NoError(t, err)
	require.Equal(t, reg.PrivateKeyPEM, priv)
}

func TestDeleteRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	reg := f.register(t, "alice@example.com")
	rec := f.sign(t, reg.Ref, "to delete")

	list, err := f.svc.ListDocuments(ctx, reg.Ref)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.DeleteRecord(ctx, reg.Ref, rec.ID))
	require.ErrorIs(t, f.svc.DeleteRecord(ctx, reg.Ref, rec.ID), repository.ErrNotFound)
	require.ErrorIs(t, f.svc.DeleteRecord(ctx, reg.Ref, " "), repository.ErrInvalidInput)

	out, err := f.svc.VerifyDocument(ctx, reg.Ref, hasher.Text("to delete"))
	require.NoError(t, err)
	require.Equal(t, verification.CauseNotFound, out.Cause)

	events, err := f.svc.AuditLog(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, repository.EventDocumentDeleted, events[1].Kind)
}

func TestRegisterBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	regs, err := f.svc.RegisterBatch(ctx, []RegisterInput{
		{Email: "one@example.com", Password: "secret123"},
		{Email: "two@example.com", Password: "secret123"},
	})
	require.NoError(t, err)
	require.Len(t, regs, 2)
	require.NotEqual(t, regs[0].Fingerprint, regs[1].Fingerprint)

	_, err = f.svc.RegisterBatch(ctx, []RegisterInput{
		{Email: "broken", Password: "secret123"},
	})
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

type failingSink struct{}

func (failingSink) Append(context.Context, repository.AuditEvent) error {
	return errors.New("sink down")
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	svc, err := New(Deps{
		Credentials:    memory.NewCredentials(),
		Documents:      memory.NewDocuments(),
		Audit:          failingSink{},
		PasswordParams: password.Fast,
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.AuditLog(context.Background(), 10)
	require.ErrorIs(t, err, audit.ErrNotReadable)
}
