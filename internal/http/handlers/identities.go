package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/securesign/internal/docsign"
	"github.com/dropDatabas3/securesign/internal/http/errors"
	mw "github.com/dropDatabas3/securesign/internal/http/middlewares"
)

type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
	KeyBits      int    `json:"key_bits"`
}

// NewRegisterHandler da de alta una identidad. La respuesta incluye la clave
// privada armada: es la única vez que sale del servicio.
func NewRegisterHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !readJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Email) == "" || req.Password == "" {
			errors.WriteError(w, errors.ErrMissingFields.WithDetail("email y password son obligatorios"))
			return
		}

		reg, err := svc.Register(r.Context(), docsign.RegisterInput{
			Email:        req.Email,
			Password:     req.Password,
			Name:         req.Name,
			Organization: req.Organization,
			Role:         docsign.RoleUser,
			KeyBits:      req.KeyBits,
		})
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		w.Header().Set("Location", "/v1/identities/"+reg.Ref+"/certificate")
		writeJSON(w, http.StatusCreated, reg)
	}
}

// NewCertificateHandler devuelve el certificado actual de {ref}. Es público.
func NewCertificateHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cert, err := svc.Certificate(r.Context(), chi.URLParam(r, "ref"))
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)
	}
}

// NewRevokeHandler revoca el certificado de {ref}. Requiere operador.
func NewRevokeHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cert, err := svc.RevokeCertificate(r.Context(), mw.Operator(r.Context()), chi.URLParam(r, "ref"))
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)
	}
}

type RotateRequest struct {
	KeyBits int `json:"key_bits"`
}

// NewRotateHandler rota las claves de la identidad autenticada. {ref} debe
// ser la misma identidad.
func NewRotateHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := sameIdentity(w, r, chi.URLParam(r, "ref"))
		if !ok {
			return
		}
		var req RotateRequest
		if r.ContentLength != 0 && !readJSON(w, r, &req) {
			return
		}
		rot, err := svc.RotateKeys(r.Context(), ref, req.KeyBits)
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rot)
	}
}

// sameIdentity resuelve la identidad del request: la autenticada, que debe
// coincidir con claimed si viene informada.
func sameIdentity(w http.ResponseWriter, r *http.Request, claimed string) (string, bool) {
	ref := mw.GetIdentity(r.Context())
	if ref == "" {
		errors.WriteError(w, errors.ErrUnauthorized)
		return "", false
	}
	if claimed = strings.TrimSpace(claimed); claimed != "" && !strings.EqualFold(claimed, ref) {
		errors.WriteError(w, errors.ErrForbidden.WithDetail("identity does not match credentials"))
		return "", false
	}
	return ref, true
}
