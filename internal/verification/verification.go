// Package verification implementa el primitivo de verificación de firmas y el
// protocolo que reúne un documento subido con su SignatureRecord.
package verification

import (
	"context"
	"crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/securesign/internal/codec"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/keys"
)

// Cause explica por qué una verificación no es válida.
type Cause string

const (
	CauseNone                 Cause = ""
	CauseNotFound             Cause = "NotFound"
	CauseUnsigned             Cause = "Unsigned"
	CauseSignerKeyUnavailable Cause = "SignerKeyUnavailable"
	CauseSignatureMismatch    Cause = "SignatureMismatch"
)

// Origen de la clave usada para verificar.
const (
	KeySourcePinned = "pinned"
	KeySourceStore  = "store"
)

// Outcome es el resultado de VerifyContent. Valid=true trae los datos del
// firmante; Valid=false trae Cause.
type Outcome struct {
	Valid  bool          `json:"valid"`
	Cause  Cause         `json:"cause,omitempty"`
	Digest hasher.Digest `json:"digest"`

	RecordID          string    `json:"record_id,omitempty"`
	SignerRef         string    `json:"signer_ref,omitempty"`
	SignerFingerprint string    `json:"signer_fingerprint,omitempty"`
	SignedAt          time.Time `json:"signed_at,omitempty"`
	Reason            string    `json:"reason,omitempty"`
	Location          string    `json:"location,omitempty"`
	KeySource         string    `json:"key_source,omitempty"`
}

// Err devuelve el sentinel que corresponde a Cause (nil si es válido).
func (o Outcome) Err() error {
	switch o.Cause {
	case CauseNotFound:
		return repository.ErrNotFound
	case CauseUnsigned:
		return repository.ErrUnsigned
	case CauseSignerKeyUnavailable:
		return repository.ErrSignerKeyUnavailable
	case CauseSignatureMismatch:
		return repository.ErrSignatureMismatch
	}
	return nil
}

// String resume el resultado para logs y auditoría.
func (o Outcome) String() string {
	if o.Valid {
		return "Valid"
	}
	return "Invalid(" + string(o.Cause) + ")"
}

// DocumentFinder es el subconjunto del DocumentStore que usa el protocolo.
type DocumentFinder interface {
	FindByDigest(ctx context.Context, scope, digest string) ([]repository.SignatureRecord, error)
}

// Engine ejecuta el protocolo de verificación. No escribe auditoría ni muta
// ningún store; es seguro para uso concurrente.
type Engine struct {
	docs DocumentFinder
	keys repository.PublicKeyResolver
}

// NewEngine crea un Engine sobre los colaboradores dados.
func NewEngine(docs DocumentFinder, resolver repository.PublicKeyResolver) *Engine {
	return &Engine{docs: docs, keys: resolver}
}

// VerifyContent verifica el contenido subido contra los registros de scope.
// El digest siempre se recalcula desde los bytes recibidos. Devuelve error sólo
// para fallas que no son un resultado (entrada inválida, match ambiguo, store caído).
func (e *Engine) VerifyContent(ctx context.Context, scope string, in hasher.Input) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	digest, err := hasher.Of(in)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{Digest: digest}

	matches, err := e.docs.FindByDigest(ctx, scope, string(digest))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return Outcome{}, fmt.Errorf("find by digest: %w", err)
	}
	switch len(matches) {
	case 0:
		out.Cause = CauseNotFound
		return out, nil
	case 1:
	default:
		return Outcome{}, fmt.Errorf("%w: %d records for digest %s in scope %q",
			repository.ErrAmbiguousMatch, len(matches), digest.Short(), scope)
	}

	rec := matches[0]
	out.RecordID = rec.ID
	out.SignerRef = rec.SignerRef
	out.SignerFingerprint = rec.SignerFingerprint
	if !rec.Signed() {
		out.Cause = CauseUnsigned
		return out, nil
	}

	pub, source, err := e.resolveKey(ctx, rec)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			out.Cause = CauseSignerKeyUnavailable
			return out, nil
		}
		return Outcome{}, err
	}
	out.KeySource = source

	if !Verify(hasher.Digest(rec.ContentDigest), rec.SignatureValue, pub) {
		out.Cause = CauseSignatureMismatch
		return out, nil
	}

	out.Valid = true
	out.SignedAt = rec.SignedAt
	out.Reason = rec.Reason
	out.Location = rec.Location
	return out, nil
}

// resolveKey usa la clave fijada en el registro si su fingerprint coincide con
// SignerFingerprint; si no, la clave actual del firmante en el CredentialStore.
func (e *Engine) resolveKey(ctx context.Context, rec repository.SignatureRecord) (*rsa.PublicKey, string, error) {
	if rec.SignerPublicKey != "" && keys.Fingerprint(rec.SignerPublicKey) == rec.SignerFingerprint {
		if pub, err := keys.ImportPublic(rec.SignerPublicKey); err == nil {
			return pub, KeySourcePinned, nil
		}
	}
	if e.keys == nil || rec.SignerRef == "" {
		return nil, "", repository.ErrNotFound
	}
	text, err := e.keys.ResolvePublicKey(ctx, rec.SignerRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", repository.ErrNotFound
		}
		return nil, "", fmt.Errorf("resolve public key: %w", err)
	}
	pub, err := keys.ImportPublic(text)
	if err != nil {
		return nil, "", fmt.Errorf("import signer key: %w", err)
	}
	return pub, KeySourceStore, nil
}

// Verify es el primitivo: true sólo si signature (base64) es una firma
// PKCS#1 v1.5 válida de los bytes crudos de digest bajo pub. Una firma o
// digest mal formados cuentan como no válidos.
func Verify(digest hasher.Digest, signature string, pub *rsa.PublicKey) bool {
	if pub == nil {
		return false
	}
	raw, err := digest.Bytes()
	if err != nil {
		return false
	}
	sig, err := codec.Base64Decode(signature)
	if err != nil || len(sig) == 0 {
		return false
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, raw, sig) == nil
}

// VerifyArmored importa publicPEM y aplica Verify. Falla con
// ErrMalformedKeyEncoding si la clave no se puede importar.
func VerifyArmored(digest hasher.Digest, signature, publicPEM string) (bool, error) {
	pub, err := keys.ImportPublic(publicPEM)
	if err != nil {
		return false, err
	}
	return Verify(digest, signature, pub), nil
}
