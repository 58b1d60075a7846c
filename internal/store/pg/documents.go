package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// Documents implementa repository.DocumentStore sobre signature_record.
// La unicidad (scope, content_digest) la garantiza un UNIQUE constraint.
type Documents struct {
	pool *pgxpool.Pool
}

const recordColumns = `id, scope, name, content_digest, signature_value, algorithm, signer_ref,
	signer_fingerprint, signer_public_key, signed_at, reason, location`

func scanRecords(rows pgx.Rows) ([]repository.SignatureRecord, error) {
	defer rows.Close()
	var out []repository.SignatureRecord
	for rows.Next() {
		var r repository.SignatureRecord
		if err := rows.Scan(&r.ID, &r.Scope, &r.Name, &r.ContentDigest, &r.SignatureValue, &r.Algorithm,
			&r.SignerRef, &r.SignerFingerprint, &r.SignerPublicKey, &r.SignedAt, &r.Reason, &r.Location); err != nil {
			return nil, err
		}
		r.SignedAt = r.SignedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *Documents) PutRecord(ctx context.Context, scope string, rec repository.SignatureRecord) error {
	if rec.ID == "" || rec.ContentDigest == "" {
		return repository.ErrInvalidInput
	}
	const q = `INSERT INTO signature_record (` + recordColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	_, err := d.pool.Exec(ctx, q, rec.ID, scope, rec.Name, rec.ContentDigest, rec.SignatureValue, rec.Algorithm,
		rec.SignerRef, rec.SignerFingerprint, rec.SignerPublicKey, rec.SignedAt, rec.Reason, rec.Location)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert signature record: %w", err)
	}
	return nil
}

func (d *Documents) FindByDigest(ctx context.Context, scope, digest string) ([]repository.SignatureRecord, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM signature_record WHERE scope = $1 AND content_digest = $2`, scope, digest)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (d *Documents) ListRecords(ctx context.Context, scope string) ([]repository.SignatureRecord, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM signature_record WHERE scope = $1 ORDER BY signed_at DESC`, scope)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func (d *Documents) DeleteRecord(ctx context.Context, scope, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM signature_record WHERE scope = $1 AND id = $2`, scope, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (d *Documents) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := d.pool.QueryRow(ctx, `SELECT count(*) FROM signature_record`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
