// Package router arma el árbol de rutas HTTP del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dropDatabas3/securesign/internal/docsign"
	"github.com/dropDatabas3/securesign/internal/http/errors"
	"github.com/dropDatabas3/securesign/internal/http/handlers"
	mw "github.com/dropDatabas3/securesign/internal/http/middlewares"
	"github.com/dropDatabas3/securesign/internal/metrics"
	"github.com/dropDatabas3/securesign/internal/rate"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Service *docsign.Service

	Metrics  *metrics.Metrics    // nil = sin métricas HTTP
	Gatherer prometheus.Gatherer // nil = registry default

	// OperatorSecret firma los JWT HS256 de operador. Vacío cierra las rutas de operador.
	OperatorSecret []byte
	MaxBodyBytes   int64

	// Limiter frena altas y autenticación HTTP Basic. nil = sin límite.
	Limiter rate.Limiter

	Ready     map[string]handlers.Check
	SelfCheck *handlers.SelfCheck
}

// New devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(d.Metrics),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
	)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, errors.ErrNotFound.WithDetail("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, errors.New(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Método no permitido."))
	})

	r.Get("/healthz", handlers.NewHealthzHandler())
	r.Get("/readyz", handlers.NewReadyzHandler(d.SelfCheck, d.Ready))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))

	svc := d.Service
	operator := mw.RequireOperator(d.OperatorSecret)
	authLimit := mw.WithRateLimit(d.Limiter, mw.BasicUserRateKey)
	identity := mw.RequireIdentity(svc)

	r.Route("/v1", func(r chi.Router) {
		r.Use(mw.WithMaxBody(d.MaxBodyBytes))

		r.Post("/hash", handlers.NewHashHandler())

		r.Route("/identities", func(r chi.Router) {
			r.With(mw.WithRateLimit(d.Limiter, mw.IPRateKey)).Post("/", handlers.NewRegisterHandler(svc))
			r.Get("/{ref}/certificate", handlers.NewCertificateHandler(svc))
			r.With(operator).Post("/{ref}/certificate/revoke", handlers.NewRevokeHandler(svc))
			r.With(authLimit, identity).Post("/{ref}/keys/rotate", handlers.NewRotateHandler(svc))
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/verify", handlers.NewVerifyHandler(svc))
			r.Group(func(r chi.Router) {
				r.Use(authLimit, identity)
				r.Get("/", handlers.NewListDocumentsHandler(svc))
				r.Post("/sign", handlers.NewSignHandler(svc))
				r.Delete("/{id}", handlers.NewDeleteDocumentHandler(svc))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(operator)
			r.Get("/audit", handlers.NewAuditHandler(svc))
			r.Get("/stats", handlers.NewStatsHandler(svc))
		})
	})

	return r
}
