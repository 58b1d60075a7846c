// Package errors define los errores de la API HTTP y su traducción desde
// los sentinels del dominio.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// FromError convierte err en *AppError. Los sentinels del dominio se mapean
// con FromDomain; cualquier otro error es un 500 que conserva la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if mapped := FromDomain(err); mapped != nil {
		return mapped
	}
	return ErrInternalServerError.WithCause(err)
}

// FromDomain mapea un sentinel del dominio a su AppError. nil si err no es
// un error conocido.
func FromDomain(err error) *AppError {
	var base *AppError
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, repository.ErrInvalidInput):
		base = ErrBadRequest
	case stderrors.Is(err, repository.ErrUnsupportedInputShape):
		base = ErrUnsupportedContent
	case stderrors.Is(err, repository.ErrUnsupportedKeySize):
		base = ErrInvalidParameter
	case stderrors.Is(err, repository.ErrMalformedKeyEncoding):
		base = ErrBadRequest
	case stderrors.Is(err, repository.ErrInvalidCredentials):
		base = ErrInvalidCredentials
	case stderrors.Is(err, repository.ErrNotFound):
		base = ErrNotFound
	case stderrors.Is(err, repository.ErrConflict):
		base = ErrConflict
	case stderrors.Is(err, repository.ErrCertificateRevoked):
		base = ErrCertificateRevoked
	case stderrors.Is(err, repository.ErrAlreadyRevoked):
		base = ErrAlreadyRevoked
	case stderrors.Is(err, repository.ErrAmbiguousMatch):
		base = ErrIntegrity
	default:
		return nil
	}
	out := base.WithCause(err)
	if base.HTTPStatus < 500 {
		out.Detail = err.Error()
	}
	return out
}

// WriteError escribe err como JSON con el status del AppError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Detail:    appErr.Detail,
		RequestID: w.Header().Get("X-Request-ID"),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}
