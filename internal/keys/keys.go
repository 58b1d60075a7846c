// Package keys genera pares de claves RSA y las exporta/importa en formato
// armado (SPKI "PUBLIC KEY" y PKCS#8 "PRIVATE KEY").
//
// El Manager no guarda material de clave: cada GenerateKeyPair devuelve un
// par nuevo y el caller decide dónde persistirlo (CredentialStore).
package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"io"
	"time"

	"github.com/dropDatabas3/securesign/internal/codec"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// Tamaños soportados.
const (
	Bits2048 = 2048
	Bits4096 = 4096

	DefaultBits = Bits2048
)

// Config del Manager. Los campos nil toman defaults.
type Config struct {
	// Rand es la fuente de entropía. Default: crypto/rand.Reader.
	Rand io.Reader
	// Now es el reloj. Default: time.Now.
	Now func() time.Time
	// DefaultBits se usa cuando GenerateKeyPair recibe 0. Default: 2048.
	DefaultBits int
}

// Manager genera pares de claves. Es seguro para uso concurrente.
type Manager struct {
	rand        io.Reader
	now         func() time.Time
	defaultBits int
}

// NewManager crea un Manager con la configuración dada.
func NewManager(cfg Config) *Manager {
	m := &Manager{rand: cfg.Rand, now: cfg.Now, defaultBits: cfg.DefaultBits}
	if m.rand == nil {
		m.rand = rand.Reader
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.defaultBits == 0 {
		m.defaultBits = DefaultBits
	}
	return m
}

// ValidBits reporta si bits es un tamaño soportado.
func ValidBits(bits int) bool {
	return bits == Bits2048 || bits == Bits4096
}

// GenerateKeyPair genera un par RSA nuevo. bits=0 usa el default del Manager.
// Cualquier otro valor fuera de {2048, 4096} falla con ErrUnsupportedKeySize.
// Un fallo de entropía aborta la operación; nunca se devuelve un par parcial.
func (m *Manager) GenerateKeyPair(ctx context.Context, bits int) (repository.KeyPair, error) {
	if bits == 0 {
		bits = m.defaultBits
	}
	if !ValidBits(bits) {
		return repository.KeyPair{}, fmt.Errorf("%w: %d", repository.ErrUnsupportedKeySize, bits)
	}
	if err := ctx.Err(); err != nil {
		return repository.KeyPair{}, err
	}

	priv, err := rsa.GenerateKey(m.rand, bits)
	if err != nil {
		return repository.KeyPair{}, fmt.Errorf("generate rsa-%d key: %w", bits, err)
	}
	return repository.KeyPair{
		PublicKey:  &priv.PublicKey,
		PrivateKey: priv,
		Algorithm:  repository.AlgorithmRSASHA256,
		Bits:       bits,
		CreatedAt:  m.now().UTC(),
	}, nil
}

// ExportPublic serializa la clave pública como SPKI armado.
func ExportPublic(pub *rsa.PublicKey) (string, error) {
	if pub == nil {
		return "", fmt.Errorf("%w: nil public key", repository.ErrMalformedKeyEncoding)
	}
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal spki: %w", err)
	}
	return codec.Armor(codec.BlockPublicKey, der), nil
}

// ExportPrivate serializa la clave privada como PKCS#8 armado.
func ExportPrivate(priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", repository.ErrMalformedKeyEncoding)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", fmt.Errorf("marshal pkcs8: %w", err)
	}
	return codec.Armor(codec.BlockPrivateKey, der), nil
}

// ImportPublic es la inversa de ExportPublic.
func ImportPublic(text string) (*rsa.PublicKey, error) {
	der, err := codec.Dearmor(codec.BlockPublicKey, text)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedKeyEncoding, err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA public key (%T)", repository.ErrMalformedKeyEncoding, key)
	}
	return pub, nil
}

// ImportPrivate es la inversa de ExportPrivate.
func ImportPrivate(text string) (*rsa.PrivateKey, error) {
	der, err := codec.Dearmor(codec.BlockPrivateKey, text)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedKeyEncoding, err)
	}
	priv, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA private key (%T)", repository.ErrMalformedKeyEncoding, key)
	}
	return priv, nil
}

// Fingerprint es el SHA-256 del texto armado, en octetos hex mayúsculas
// separados por ':'. Se hashea el texto, no el DER.
func Fingerprint(armored string) string {
	sum := sha256.Sum256([]byte(armored))
	return codec.ColonHex(sum[:])
}

// Exported es un par ya serializado, listo para persistir.
type Exported struct {
	PublicPEM   string
	PrivatePEM  string
	Fingerprint string
}

// Export serializa ambas mitades de kp y calcula el fingerprint.
func Export(kp repository.KeyPair) (Exported, error) {
	pub, err := ExportPublic(kp.PublicKey)
	if err != nil {
		return Exported{}, err
	}
	priv, err := ExportPrivate(kp.PrivateKey)
	if err != nil {
		return Exported{}, err
	}
	return Exported{PublicPEM: pub, PrivatePEM: priv, Fingerprint: Fingerprint(pub)}, nil
}
