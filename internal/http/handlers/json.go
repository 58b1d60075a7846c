// Package handlers implementa los endpoints HTTP del servicio.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/dropDatabas3/securesign/internal/http/errors"
)

// maxJSONBody acota el body cuando el server no configura un límite propio.
// Los documentos viajan como data URL dentro del JSON.
const maxJSONBody = 32 << 20

func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	if !strings.Contains(ct, "application/json") {
		errors.WriteError(w, errors.ErrUnsupportedMediaType)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			errors.WriteError(w, errors.ErrBodyTooLarge)
		case err == io.EOF:
			errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("body vacío"))
		default:
			errors.WriteError(w, errors.ErrInvalidJSON.WithDetail(err.Error()))
		}
		return false
	}
	if dec.More() {
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("sobran datos en el body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
