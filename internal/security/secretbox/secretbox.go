// Package secretbox sella secretos en reposo con AES-256-GCM.
//
// Formato: base64(nonce)|base64(ciphertext). Se usa para guardar las claves
// privadas de las identidades en los credential stores fs y postgres.
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	nonceSizeGCM      = 12  // AES-GCM nonce size recomendado (96 bits)
	requiredKeyLength = 32  // 32 bytes => AES-256
	sep               = "|" // nonce|ciphertext (ambos en base64)
)

// ErrMalformed indica un texto sellado con formato inválido.
var ErrMalformed = errors.New("secretbox: formato inválido, esperado base64(nonce)|base64(ciphertext)")

// Box sella y abre secretos con una clave maestra fija.
// Es seguro para uso concurrente.
type Box struct {
	aead cipher.AEAD
	rand io.Reader
}

// New crea un Box a partir de una clave de 32 bytes crudos.
func New(key []byte) (*Box, error) {
	if len(key) != requiredKeyLength {
		return nil, fmt.Errorf("secretbox: clave inválida: %d bytes (requiere %d)", len(key), requiredKeyLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Box{aead: aead, rand: rand.Reader}, nil
}

// FromString crea un Box a partir de una clave en base64, base64 sin padding
// o hex (64 caracteres). Genere una con: openssl rand -base64 32
func FromString(key string) (*Box, error) {
	kb, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	return New(kb)
}

// ParseKey decodifica una clave maestra textual.
func ParseKey(key string) ([]byte, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("secretbox: clave vacía")
	}
	if b, err := base64.StdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if b, err := base64.RawStdEncoding.DecodeString(key); err == nil && len(b) == requiredKeyLength {
		return b, nil
	}
	if len(key) == 2*requiredKeyLength {
		if h, err := hex.DecodeString(key); err == nil {
			return h, nil
		}
	}
	return nil, fmt.Errorf("secretbox: la clave debe decodificar a %d bytes (base64 o hex)", requiredKeyLength)
}

// Seal cifra plain y devuelve base64(nonce)|base64(ciphertext).
func (b *Box) Seal(plain string) (string, error) {
	nonce := make([]byte, nonceSizeGCM)
	if _, err := io.ReadFull(b.rand, nonce); err != nil {
		return "", fmt.Errorf("nonce random: %w", err)
	}
	ct := b.aead.Seal(nil, nonce, []byte(plain), nil)
	return base64.StdEncoding.EncodeToString(nonce) + sep + base64.StdEncoding.EncodeToString(ct), nil
}

// Open es la inversa de Seal. Falla si el texto fue alterado.
func (b *Box) Open(sealed string) (string, error) {
	nonceB64, ctB64, ok := strings.Cut(sealed, sep)
	if !ok {
		return "", ErrMalformed
	}
	nonce, err := base64.StdEncoding.DecodeString(nonceB64)
	if err != nil {
		return "", fmt.Errorf("decode nonce: %w", err)
	}
	if len(nonce) != nonceSizeGCM {
		return "", fmt.Errorf("nonce inválido: esperado %d bytes, obtuvo %d", nonceSizeGCM, len(nonce))
	}
	ct, err := base64.StdEncoding.DecodeString(ctB64)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	pt, err := b.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("gcm auth/decrypt: %w", err)
	}
	return string(pt), nil
}

// IsSealed reporta si s tiene forma de texto sellado. Un PEM nunca la tiene.
func IsSealed(s string) bool {
	a, c, ok := strings.Cut(s, sep)
	if !ok || a == "" || c == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(a)
	return err == nil
}
