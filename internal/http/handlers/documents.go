package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/securesign/internal/docsign"
	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/http/errors"
	"github.com/dropDatabas3/securesign/internal/verification"
)

// SignRequest. Content es texto plano o un data URL.
type SignRequest struct {
	Identity string `json:"identity"`
	Name     string `json:"name"`
	Content  string `json:"content"`
	Reason   string `json:"reason"`
	Location string `json:"location"`
}

func NewSignHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignRequest
		if !readJSON(w, r, &req) {
			return
		}
		ref, ok := sameIdentity(w, r, req.Identity)
		if !ok {
			return
		}
		if req.Content == "" {
			errors.WriteError(w, errors.ErrMissingFields.WithDetail("content es obligatorio"))
			return
		}

		rec, err := svc.SignDocument(r.Context(), docsign.SignInput{
			Identity: ref,
			Name:     req.Name,
			Content:  hasher.FromString(req.Content),
			Reason:   req.Reason,
			Location: req.Location,
		})
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rec)
	}
}

type VerifyRequest struct {
	Scope   string `json:"scope"`
	Content string `json:"content"`
}

type VerifyResponse struct {
	Result string `json:"result"`
	verification.Outcome
}

// NewVerifyHandler corre el protocolo de verificación. Un resultado inválido
// es una respuesta 200 con valid=false y la causa.
func NewVerifyHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRequest
		if !readJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Scope) == "" || req.Content == "" {
			errors.WriteError(w, errors.ErrMissingFields.WithDetail("scope y content son obligatorios"))
			return
		}

		out, err := svc.VerifyDocument(r.Context(), req.Scope, hasher.FromString(req.Content))
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, VerifyResponse{Result: out.String(), Outcome: out})
	}
}

func NewListDocumentsHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := sameIdentity(w, r, r.URL.Query().Get("identity"))
		if !ok {
			return
		}
		recs, err := svc.ListDocuments(r.Context(), ref)
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": recs, "count": len(recs)})
	}
}

func NewDeleteDocumentHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ref, ok := sameIdentity(w, r, r.URL.Query().Get("identity"))
		if !ok {
			return
		}
		if err := svc.DeleteRecord(r.Context(), ref, chi.URLParam(r, "id")); err != nil {
			errors.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type HashRequest struct {
	Content  string `json:"content"`
	Expected string `json:"expected"`
}

type HashResponse struct {
	Digest  hasher.Digest `json:"digest"`
	Matches *bool         `json:"matches,omitempty"`
}

// NewHashHandler calcula el digest del contenido y, si viene expected,
// informa si coincide.
func NewHashHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HashRequest
		if !readJSON(w, r, &req) {
			return
		}
		in := hasher.FromString(req.Content)
		d, err := hasher.Of(in)
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		resp := HashResponse{Digest: d}
		if req.Expected != "" {
			exp, err := hasher.Parse(req.Expected)
			if err != nil {
				errors.WriteError(w, err)
				return
			}
			ok, err := hasher.Matches(in, exp)
			if err != nil {
				errors.WriteError(w, err)
				return
			}
			resp.Matches = &ok
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
