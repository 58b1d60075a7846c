package repository

import (
	"context"
	"crypto/rsa"
	"time"
)

// AlgorithmRSASHA256 es el único algoritmo de firma soportado.
const AlgorithmRSASHA256 = "RSASSA-PKCS1-v1_5/SHA-256"

// KeyPair es un par de claves RSA generado de una sola vez para una identidad.
// El subsistema nunca retiene material de clave entre llamadas: el dueño es
// el CredentialStore que persiste la identidad.
type KeyPair struct {
	PublicKey  *rsa.PublicKey
	PrivateKey *rsa.PrivateKey
	Algorithm  string
	Bits       int
	CreatedAt  time.Time
}

// CertificateStatus indica el estado de un certificado.
type CertificateStatus string

const (
	CertificateActive  CertificateStatus = "Active"
	CertificateRevoked CertificateStatus = "Revoked"
)

// Certificate es la metadata de certificado ligada a un fingerprint.
// ExpiresAt es informativo: no hay transición automática por vencimiento.
type Certificate struct {
	Serial           string            `json:"serial"`
	IssuedAt         time.Time         `json:"issued_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	Status           CertificateStatus `json:"status"`
	BoundFingerprint string            `json:"bound_fingerprint"`
	RevokedAt        *time.Time        `json:"revoked_at,omitempty"`
}

// Active reporta si el certificado sigue activo.
func (c Certificate) Active() bool { return c.Status == CertificateActive }

// Identity es el registro de una identidad en el Credential Store.
// PasswordHash es siempre un hash argon2id; nunca el secreto en claro.
type Identity struct {
	Ref           string // email
	Name          string
	Organization  string
	Role          string // "user" | "admin"
	PasswordHash  string
	PublicKeyPEM  string
	PrivateKeyPEM string // sellado en reposo por los adapters cuando hay master key
	Fingerprint   string
	Algorithm     string
	Certificate   Certificate
	RegisteredAt  time.Time
	KeyCreatedAt  time.Time
}

// CredentialStore es el colaborador que persiste identidades y su material de clave.
type CredentialStore interface {
	// CreateIdentity persiste una identidad nueva. ErrConflict si ya existe.
	CreateIdentity(ctx context.Context, id *Identity) error

	// GetIdentity obtiene una identidad por referencia. ErrNotFound si no existe.
	GetIdentity(ctx context.Context, ref string) (*Identity, error)

	// ListIdentities lista todas las identidades (sin clave privada).
	ListIdentities(ctx context.Context) ([]Identity, error)

	// RecordKeyPair guarda (o reemplaza) el par de claves actual de la identidad.
	RecordKeyPair(ctx context.Context, ref string, kp KeyPair) error

	// ResolvePublicKey devuelve el PEM de la clave pública actual. ErrNotFound si no hay.
	ResolvePublicKey(ctx context.Context, ref string) (string, error)

	// ResolvePrivateKey devuelve el PEM PKCS#8 de la clave privada actual.
	ResolvePrivateKey(ctx context.Context, ref string) (string, error)

	// UpdateCertificate aplica fn sobre el certificado de la identidad de forma serializada.
	// Si fn devuelve error no se persiste nada.
	UpdateCertificate(ctx context.Context, ref string, fn func(*Certificate) error) (*Certificate, error)

	// RotateKeyPair reemplaza el par de claves y aplica fn al certificado en
	// una sola mutación serializada con UpdateCertificate. Si fn devuelve
	// error no se persiste nada: ni la clave ni el certificado.
	RotateKeyPair(ctx context.Context, ref string, kp KeyPair, fn func(*Certificate) error) (*Certificate, error)
}

// PublicKeyResolver es el subconjunto del CredentialStore que necesita el verificador.
type PublicKeyResolver interface {
	ResolvePublicKey(ctx context.Context, ref string) (string, error)
}
