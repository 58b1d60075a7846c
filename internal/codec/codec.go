// Package codec agrupa las conversiones a nivel de bytes: hex, base64 y
// armado PEM. No tiene estado.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"strings"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// Tipos de bloque armado.
const (
	BlockPublicKey  = "PUBLIC KEY"
	BlockPrivateKey = "PRIVATE KEY"
)

// HexEncode devuelve el hex en minúsculas de b.
func HexEncode(b []byte) string { return hex.EncodeToString(b) }

// HexDecode decodifica hex (acepta mayúsculas o minúsculas).
func HexDecode(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return b, nil
}

// Base64Encode codifica con el alfabeto estándar y padding.
func Base64Encode(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

// Base64Decode decodifica base64 estándar, ignorando espacios y saltos de línea.
func Base64Decode(s string) ([]byte, error) {
	clean := strings.Join(strings.Fields(s), "")
	b, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return b, nil
}

const pemLineLength = 64

// Armor envuelve der en un bloque PEM con líneas de 64 caracteres.
// El resultado no lleva salto de línea final: el fingerprint se calcula sobre
// este texto exacto, así que el formato debe ser estable entre exports.
func Armor(blockType string, der []byte) string {
	out := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	return string(bytes.TrimRight(out, "\n"))
}

// Dearmor es la inversa exacta de Armor. Falla con ErrMalformedKeyEncoding si
// el header/footer no corresponde a blockType, si hay headers PEM, si queda
// texto fuera del bloque o si una línea del cuerpo supera los 64 caracteres.
func Dearmor(blockType, text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "-----BEGIN "+blockType+"-----") {
		return nil, fmt.Errorf("%w: expected %q header at start", repository.ErrMalformedKeyEncoding, blockType)
	}
	lines := strings.Split(trimmed, "\n")
	for i := 1; i < len(lines)-1; i++ {
		if len(strings.TrimRight(lines[i], "\r")) > pemLineLength {
			return nil, fmt.Errorf("%w: body line longer than %d", repository.ErrMalformedKeyEncoding, pemLineLength)
		}
	}
	block, rest := pem.Decode([]byte(trimmed))
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", repository.ErrMalformedKeyEncoding)
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("%w: expected %q, got %q", repository.ErrMalformedKeyEncoding, blockType, block.Type)
	}
	if len(block.Headers) > 0 {
		return nil, fmt.Errorf("%w: unexpected PEM headers", repository.ErrMalformedKeyEncoding)
	}
	if len(bytes.TrimSpace(rest)) > 0 {
		return nil, fmt.Errorf("%w: trailing data after PEM block", repository.ErrMalformedKeyEncoding)
	}
	return block.Bytes, nil
}

// ColonHex formatea b como pares hex en mayúsculas separados por ':'.
func ColonHex(b []byte) string {
	h := strings.ToUpper(hex.EncodeToString(b))
	parts := make([]string, 0, len(b))
	for i := 0; i+2 <= len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}
