package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/security/secretbox"
)

// Credentials implementa repository.CredentialStore sobre la tabla identity.
type Credentials struct {
	pool *pgxpool.Pool
	box  *secretbox.Box
}

const identityColumns = `ref, name, organization, role, password_hash, public_key_pem, private_key_enc,
	fingerprint, algorithm, key_created_at, cert_serial, cert_issued_at, cert_expires_at,
	cert_status, cert_bound_fingerprint, cert_revoked_at, registered_at`

func (c *Credentials) seal(pemText string) (string, error) {
	if pemText == "" || c.box == nil {
		return pemText, nil
	}
	return c.box.Seal(pemText)
}

func (c *Credentials) open(enc string) (string, error) {
	if enc == "" || !secretbox.IsSealed(enc) {
		return enc, nil
	}
	if c.box == nil {
		return "", fmt.Errorf("private key is sealed but no master key is configured")
	}
	return c.box.Open(enc)
}

func scanIdentity(row pgx.Row) (*repository.Identity, string, error) {
	var (
		id                          repository.Identity
		privEnc, status             string
		keyAt, issued, exp, revoked *time.Time
	)
	err := row.Scan(&id.Ref, &id.Name, &id.Organization, &id.Role, &id.PasswordHash, &id.PublicKeyPEM, &privEnc,
		&id.Fingerprint, &id.Algorithm, &keyAt, &id.Certificate.Serial, &issued, &exp,
		&status, &id.Certificate.BoundFingerprint, &revoked, &id.RegisteredAt)
	if err != nil {
		if isNoRows(err) {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", err
	}
	id.KeyCreatedAt = derefTime(keyAt)
	id.Certificate.IssuedAt = derefTime(issued)
	id.Certificate.ExpiresAt = derefTime(exp)
	id.Certificate.Status = repository.CertificateStatus(status)
	if revoked != nil {
		t := revoked.UTC()
		id.Certificate.RevokedAt = &t
	}
	id.RegisteredAt = id.RegisteredAt.UTC()
	return &id, privEnc, nil
}

func (c *Credentials) CreateIdentity(ctx context.Context, id *repository.Identity) error {
	if id == nil || id.Ref == "" {
		return repository.ErrInvalidInput
	}
	enc, err := c.seal(id.PrivateKeyPEM)
	if err != nil {
		return err
	}
	const q = `INSERT INTO identity (` + identityColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err = c.pool.Exec(ctx, q,
		id.Ref, id.Name, id.Organization, id.Role, id.PasswordHash, id.PublicKeyPEM, enc,
		id.Fingerprint, id.Algorithm, nullTime(id.KeyCreatedAt), id.Certificate.Serial,
		nullTime(id.Certificate.IssuedAt), nullTime(id.Certificate.ExpiresAt),
		string(id.Certificate.Status), id.Certificate.BoundFingerprint, id.Certificate.RevokedAt, id.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (c *Credentials) GetIdentity(ctx context.Context, ref string) (*repository.Identity, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identity WHERE ref = $1`, ref)
	id, enc, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	if id.PrivateKeyPEM, err = c.open(enc); err != nil {
		return nil, err
	}
	return id, nil
}

func (c *Credentials) ListIdentities(ctx context.Context) ([]repository.Identity, error) {
	rows, err := c.pool.Query(ctx, `SELECT `+identityColumns+` FROM identity ORDER BY registered_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Identity
	for rows.Next() {
		id, _, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *id)
	}
	return out, rows.Err()
}

func (c *Credentials) RecordKeyPair(ctx context.Context, ref string, kp repository.KeyPair) error {
	ex, err := keys.Export(kp)
	if err != nil {
		return err
	}
	enc, err := c.seal(ex.PrivatePEM)
	if err != nil {
		return err
	}
	const q = `UPDATE identity
		SET public_key_pem = $2, private_key_enc = $3, fingerprint = $4, algorithm = $5, key_created_at = $6
		WHERE ref = $1`
	tag, err := c.pool.Exec(ctx, q, ref, ex.PublicPEM, enc, ex.Fingerprint, kp.Algorithm, nullTime(kp.CreatedAt))
	if err != nil {
		return fmt.Errorf("record key pair: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (c *Credentials) ResolvePublicKey(ctx context.Context, ref string) (string, error) {
	var pem string
	err := c.pool.QueryRow(ctx, `SELECT public_key_pem FROM identity WHERE ref = $1`, ref).Scan(&pem)
	if err != nil {
		if isNoRows(err) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	if pem == "" {
		return "", repository.ErrNotFound
	}
	return pem, nil
}

func (c *Credentials) ResolvePrivateKey(ctx context.Context, ref string) (string, error) {
	var enc string
	err := c.pool.QueryRow(ctx, `SELECT private_key_enc FROM identity WHERE ref = $1`, ref).Scan(&enc)
	if err != nil {
		if isNoRows(err) {
			return "", repository.ErrNotFound
		}
		return "", err
	}
	if enc == "" {
		return "", repository.ErrNotFound
	}
	return c.open(enc)
}

// UpdateCertificate toma un row lock (SELECT ... FOR UPDATE) para serializar
// las transiciones del certificado.
func (c *Credentials) UpdateCertificate(ctx context.Context, ref string, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+identityColumns+` FROM identity WHERE ref = $1 FOR UPDATE`, ref)
	id, _, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	cert := id.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}

	const q = `UPDATE identity
		SET cert_serial = $2, cert_issued_at = $3, cert_expires_at = $4, cert_status = $5,
		    cert_bound_fingerprint = $6, cert_revoked_at = $7
		WHERE ref = $1`
	if _, err := tx.Exec(ctx, q, ref, cert.Serial, nullTime(cert.IssuedAt), nullTime(cert.ExpiresAt),
		string(cert.Status), cert.BoundFingerprint, cert.RevokedAt); err != nil {
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &cert, nil
}

// RotateKeyPair toma el mismo row lock que UpdateCertificate y actualiza
// clave y certificado en un solo UPDATE.
func (c *Credentials) RotateKeyPair(ctx context.Context, ref string, kp repository.KeyPair, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	ex, err := keys.Export(kp)
	if err != nil {
		return nil, err
	}
	enc, err := c.seal(ex.PrivatePEM)
	if err != nil {
		return nil, err
	}

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `SELECT `+identityColumns+` FROM identity WHERE ref = $1 FOR UPDATE`, ref)
	id, _, err := scanIdentity(row)
	if err != nil {
		return nil, err
	}
	cert := id.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}

	const q = `UPDATE identity
		SET public_key_pem = $2, private_key_enc = $3, fingerprint = $4, algorithm = $5, key_created_at = $6,
		    cert_serial = $7, cert_issued_at = $8, cert_expires_at = $9, cert_status = $10,
		    cert_bound_fingerprint = $11, cert_revoked_at = $12
		WHERE ref = $1`
	if _, err := tx.Exec(ctx, q, ref, ex.PublicPEM, enc, ex.Fingerprint, kp.Algorithm, nullTime(kp.CreatedAt),
		cert.Serial, nullTime(cert.IssuedAt), nullTime(cert.ExpiresAt),
		string(cert.Status), cert.BoundFingerprint, cert.RevokedAt); err != nil {
		return nil, fmt.Errorf("rotate key pair: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &cert, nil
}
