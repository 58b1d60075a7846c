package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/docsign"
	"github.com/dropDatabas3/securesign/internal/http/errors"
)

// NewAuditHandler lista el log de auditoría, más reciente primero.
// ?limit= acota la cantidad (default 100).
func NewAuditHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				errors.WriteError(w, errors.ErrInvalidParameter.WithDetail("limit debe ser un entero positivo"))
				return
			}
			limit = n
		}
		events, err := svc.AuditLog(r.Context(), limit)
		if stderrors.Is(err, audit.ErrNotReadable) {
			errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail("audit log is not readable with the configured sink"))
			return
		}
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
	}
}

func NewStatsHandler(svc *docsign.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
