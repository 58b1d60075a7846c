// Package certificate emite y revoca la metadata de certificado ligada al
// fingerprint de una clave pública. No hay jerarquías ni cadenas de confianza:
// un certificado es un serial, un período de validez y un estado.
package certificate

import (
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/dropDatabas3/securesign/internal/codec"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// DefaultValidityYears es la validez por defecto, en años calendario.
const DefaultValidityYears = 2

// SerialBytes es la entropía del serial (64 bits).
const SerialBytes = 8

// Config del Lifecycle.
type Config struct {
	// Validity se suma a IssuedAt para calcular ExpiresAt. 0 = 2 años
	// calendario (AddDate, respeta bisiestos).
	Validity time.Duration
	// Rand es la fuente de entropía del serial. Default: crypto/rand.Reader.
	Rand io.Reader
	// Now es el reloj. Default: time.Now.
	Now func() time.Time
}

// Lifecycle emite y revoca certificados. No guarda estado: la serialización
// de Revoke sobre un mismo certificado es responsabilidad del store.
type Lifecycle struct {
	validity time.Duration
	rand     io.Reader
	now      func() time.Time
}

// New crea un Lifecycle.
func New(cfg Config) *Lifecycle {
	l := &Lifecycle{validity: cfg.Validity, rand: cfg.Rand, now: cfg.Now}
	if l.validity < 0 {
		l.validity = 0
	}
	if l.rand == nil {
		l.rand = rand.Reader
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Issue emite un certificado Active para fingerprint. Si la fuente de
// entropía falla no hay serial de respaldo: la emisión falla.
func (l *Lifecycle) Issue(fingerprint string) (repository.Certificate, error) {
	if fingerprint == "" {
		return repository.Certificate{}, fmt.Errorf("%w: empty fingerprint", repository.ErrInvalidInput)
	}
	serial, err := NewSerial(l.rand)
	if err != nil {
		return repository.Certificate{}, err
	}
	now := l.now().UTC()
	return repository.Certificate{
		Serial:           serial,
		IssuedAt:         now,
		ExpiresAt:        l.expiry(now),
		Status:           repository.CertificateActive,
		BoundFingerprint: fingerprint,
	}, nil
}

func (l *Lifecycle) expiry(issued time.Time) time.Time {
	if l.validity > 0 {
		return issued.Add(l.validity)
	}
	return issued.AddDate(DefaultValidityYears, 0, 0)
}

// Revoke pasa cert de Active a Revoked. La transición es única e
// irreversible: un certificado que no está Active devuelve ErrAlreadyRevoked
// y queda intacto.
func (l *Lifecycle) Revoke(cert *repository.Certificate) error {
	if cert == nil {
		return fmt.Errorf("%w: nil certificate", repository.ErrInvalidInput)
	}
	if cert.Status != repository.CertificateActive {
		return repository.ErrAlreadyRevoked
	}
	at := l.now().UTC()
	cert.Status = repository.CertificateRevoked
	cert.RevokedAt = &at
	return nil
}

// Expired reporta si cert venció a la fecha dada. Es sólo informativo.
func Expired(cert repository.Certificate, at time.Time) bool {
	return !cert.ExpiresAt.IsZero() && at.After(cert.ExpiresAt)
}

// NewSerial lee 8 bytes de r y los formatea como octetos hex en mayúsculas
// separados por ':'.
func NewSerial(r io.Reader) (string, error) {
	b := make([]byte, SerialBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read serial entropy: %w", err)
	}
	return codec.ColonHex(b), nil
}
