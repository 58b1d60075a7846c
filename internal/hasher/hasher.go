// Package hasher calcula el digest canónico (SHA-256, hex en minúsculas) de
// un documento, sin importar la forma en la que llegó.
package hasher

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/securesign/internal/codec"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// Size es el largo en caracteres de un Digest (256 bits en hex).
const Size = sha256.Size * 2

// Kind es la forma de la entrada.
type Kind int

const (
	KindBytes Kind = iota + 1
	KindText
	KindDataURL
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindDataURL:
		return "data_url"
	default:
		return "unknown"
	}
}

// Input es la variante explícita Bytes | Text | DataURL. El caller decide la
// forma antes de llamar al Hasher; el valor cero no es una entrada válida.
type Input struct {
	kind Kind
	raw  []byte
	text string
}

// Bytes envuelve bytes crudos; pasan sin cambios.
func Bytes(b []byte) Input { return Input{kind: KindBytes, raw: b} }

// Text envuelve texto plano; se codifica como UTF-8.
func Text(s string) Input { return Input{kind: KindText, text: s} }

// DataURL envuelve un data URL (RFC 2397); se hashea el payload decodificado.
func DataURL(s string) Input { return Input{kind: KindDataURL, text: s} }

// FromString resuelve un string recibido en el borde (HTTP, CLI): si empieza
// con "data:" es un DataURL, si no es texto.
func FromString(s string) Input {
	if strings.HasPrefix(s, "data:") {
		return DataURL(s)
	}
	return Text(s)
}

// Kind devuelve la forma de la entrada.
func (in Input) Kind() Kind { return in.kind }

// Normalize devuelve la secuencia de bytes que se hashea.
func (in Input) Normalize() ([]byte, error) {
	switch in.kind {
	case KindBytes:
		return in.raw, nil
	case KindText:
		return []byte(in.text), nil
	case KindDataURL:
		return decodeDataURL(in.text)
	default:
		return nil, repository.ErrUnsupportedInputShape
	}
}

// Digest es un SHA-256 en hex minúsculas.
type Digest string

// Of calcula el digest de la entrada.
func Of(in Input) (Digest, error) {
	b, err := in.Normalize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return Digest(codec.HexEncode(sum[:])), nil
}

// Matches recalcula el digest de in y lo compara en tiempo constante con expected.
func Matches(in Input, expected Digest) (bool, error) {
	got, err := Of(in)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(string(expected)))) == 1, nil
}

// Parse valida un digest recibido como texto.
func Parse(s string) (Digest, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != Size {
		return "", fmt.Errorf("%w: digest must be %d hex chars", repository.ErrInvalidInput, Size)
	}
	if _, err := codec.HexDecode(s); err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	return Digest(s), nil
}

// Bytes devuelve los 32 bytes crudos del digest.
func (d Digest) Bytes() ([]byte, error) {
	b, err := codec.HexDecode(string(d))
	if err != nil {
		return nil, err
	}
	if len(b) != sha256.Size {
		return nil, fmt.Errorf("digest has %d bytes, want %d", len(b), sha256.Size)
	}
	return b, nil
}

// Short devuelve el prefijo de 16 caracteres usado en auditoría.
func (d Digest) Short() string {
	if len(d) <= 16 {
		return string(d)
	}
	return string(d[:16])
}

func (d Digest) String() string { return string(d) }

// decodeDataURL extrae el payload de "data:[<mediatype>][;base64],<data>".
func decodeDataURL(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "data:") {
		return nil, fmt.Errorf("%w: missing data: scheme", repository.ErrUnsupportedInputShape)
	}
	meta, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: data url without payload separator", repository.ErrUnsupportedInputShape)
	}
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		b, err := codec.Base64Decode(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", repository.ErrUnsupportedInputShape, err)
		}
		return b, nil
	}
	txt, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrUnsupportedInputShape, err)
	}
	return []byte(txt), nil
}
