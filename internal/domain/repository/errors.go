package repository

import "errors"

// Taxonomía de errores del subsistema de firma.
var (
	// ErrUnsupportedInputShape indica una entrada que el Hasher no sabe normalizar.
	ErrUnsupportedInputShape = errors.New("unsupported input shape")

	// ErrMalformedKeyEncoding indica un bloque armado (PEM) inválido.
	ErrMalformedKeyEncoding = errors.New("malformed key encoding")

	// ErrKeyImportFailed indica que la clave privada armada no pudo importarse para firmar.
	ErrKeyImportFailed = errors.New("key import failed")

	// ErrSigningFailed indica una falla criptográfica al firmar.
	ErrSigningFailed = errors.New("signing failed")

	// ErrAmbiguousMatch indica más de un registro con el mismo digest en un scope.
	// Es una falla de integridad del store: nunca se resuelve tomando el primero.
	ErrAmbiguousMatch = errors.New("ambiguous digest match")

	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrUnsigned indica un registro sin valor de firma.
	ErrUnsigned = errors.New("record carries no signature")

	// ErrSignerKeyUnavailable indica que la clave pública del firmante no se pudo resolver.
	ErrSignerKeyUnavailable = errors.New("signer key unavailable")

	// ErrSignatureMismatch indica que la firma no corresponde al digest.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrAlreadyRevoked indica un certificado que ya estaba revocado.
	ErrAlreadyRevoked = errors.New("certificate already revoked")

	// ErrCertificateRevoked indica que la identidad no puede firmar porque su certificado fue revocado.
	ErrCertificateRevoked = errors.New("certificate revoked")

	// ErrUnsupportedKeySize indica un tamaño de clave fuera de {2048, 4096}.
	ErrUnsupportedKeySize = errors.New("unsupported key size")

	// ErrConflict indica un conflicto (ej: identidad duplicada, digest repetido en el scope).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials indica email o contraseña incorrectos.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
