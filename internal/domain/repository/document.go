package repository

import (
	"context"
	"time"
)

// SignatureRecord asocia el digest de un documento con su firma.
// Es inmutable una vez creado: sólo se crea o se elimina por su dueño.
type SignatureRecord struct {
	ID                string    `json:"id"`
	Scope             string    `json:"scope"`
	Name              string    `json:"name,omitempty"`
	ContentDigest     string    `json:"content_digest"`
	SignatureValue    string    `json:"signature_value,omitempty"`
	Algorithm         string    `json:"algorithm"`
	SignerRef         string    `json:"signer_ref"`
	SignerFingerprint string    `json:"signer_fingerprint"`

	// SignerPublicKey fija la clave usada al firmar, así una rotación no rompe el historial.
	SignerPublicKey string    `json:"signer_public_key,omitempty"`
	SignedAt        time.Time `json:"signed_at"`
	Reason          string    `json:"reason"`
	Location        string    `json:"location"`
}

// Signed reporta si el registro lleva un valor de firma.
func (r SignatureRecord) Signed() bool { return r.SignatureValue != "" }

// DocumentStore persiste SignatureRecords, direccionados por contenido y
// particionados por identidad dueña (scope).
type DocumentStore interface {
	// PutRecord crea un registro. ErrConflict si el digest ya existe en el scope.
	PutRecord(ctx context.Context, scope string, rec SignatureRecord) error

	// FindByDigest devuelve TODOS los registros del scope con ese digest.
	// Devolver más de uno es una falla de integridad que el verificador reporta.
	FindByDigest(ctx context.Context, scope, digest string) ([]SignatureRecord, error)

	// ListRecords lista los registros de un scope, más recientes primero.
	ListRecords(ctx context.Context, scope string) ([]SignatureRecord, error)

	// DeleteRecord elimina un registro del scope. ErrNotFound si no existe.
	DeleteRecord(ctx context.Context, scope, id string) error

	// CountRecords cuenta todos los registros (para estadísticas).
	CountRecords(ctx context.Context) (int, error)
}
