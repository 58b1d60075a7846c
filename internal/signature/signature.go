// Package signature produce firmas RSASSA-PKCS1-v1_5/SHA-256 sobre digests
// de contenido ya calculados por el hasher.
package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/dropDatabas3/securesign/internal/codec"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/keys"
)

// Engine firma digests. No tiene estado mutable; es seguro para uso concurrente.
type Engine struct {
	rand io.Reader
}

// NewEngine crea un Engine. r=nil usa crypto/rand.Reader.
func NewEngine(r io.Reader) *Engine {
	if r == nil {
		r = rand.Reader
	}
	return &Engine{rand: r}
}

// Sign firma los 32 bytes crudos del digest (sin re-hashear) y devuelve la
// firma en base64. Cualquier falla criptográfica se reporta como
// ErrSigningFailed; nunca se devuelve una firma parcial.
func (e *Engine) Sign(digest hasher.Digest, priv *rsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", fmt.Errorf("%w: nil private key", repository.ErrSigningFailed)
	}
	raw, err := digest.Bytes()
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrSigningFailed, err)
	}
	if len(raw) != sha256.Size {
		return "", fmt.Errorf("%w: digest length %d", repository.ErrSigningFailed, len(raw))
	}
	sig, err := rsa.SignPKCS1v15(e.rand, priv, crypto.SHA256, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrSigningFailed, err)
	}
	return codec.Base64Encode(sig), nil
}

// SignArmored importa una clave privada PKCS#8 armada y firma con ella.
// Si la importación falla devuelve ErrKeyImportFailed.
func (e *Engine) SignArmored(digest hasher.Digest, privatePEM string) (string, error) {
	priv, err := keys.ImportPrivate(privatePEM)
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrKeyImportFailed, err)
	}
	return e.Sign(digest, priv)
}
