// Package metrics define las métricas Prometheus del servicio.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics agrupa los collectors. Un *Metrics nil es válido: todos los
// métodos son no-op, así los services no dependen de que haya registry.
type Metrics struct {
	Signatures     *prometheus.CounterVec
	Verifications  *prometheus.CounterVec
	KeygenDuration *prometheus.HistogramVec
	CertsRevoked   prometheus.Counter
	AuditFailures  prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
	HTTPDuration   *prometheus.HistogramVec
	HTTPInflight   prometheus.Gauge
}

// New crea y registra las métricas en reg (o el default si es nil). Si ya
// estaban registradas reutiliza los collectors existentes.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Signatures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securesign_signatures_total",
			Help: "Firmas producidas por resultado",
		}, []string{"result"}), // result: ok|error
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securesign_verifications_total",
			Help: "Verificaciones por resultado",
		}, []string{"outcome"}), // Valid|NotFound|Unsigned|SignerKeyUnavailable|SignatureMismatch|error
		KeygenDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "securesign_keygen_duration_seconds",
			Help:    "Duración de la generación de pares RSA",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"bits"}),
		CertsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securesign_certificates_revoked_total",
			Help: "Certificados revocados",
		}),
		AuditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securesign_audit_append_failures_total",
			Help: "Eventos de auditoría que no pudieron escribirse",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo",
		}),
	}

	var err error
	m.Signatures = register(reg, m.Signatures, &err)
	m.Verifications = register(reg, m.Verifications, &err)
	m.KeygenDuration = register(reg, m.KeygenDuration, &err)
	m.CertsRevoked = register(reg, m.CertsRevoked, &err)
	m.AuditFailures = register(reg, m.AuditFailures, &err)
	m.HTTPRequests = register(reg, m.HTTPRequests, &err)
	m.HTTPDuration = register(reg, m.HTTPDuration, &err)
	m.HTTPInflight = register(reg, m.HTTPInflight, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register tolera AlreadyRegisteredError devolviendo el collector existente.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

func (m *Metrics) ObserveSign(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Signatures.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveVerification(outcome string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveKeygen(bits int, d time.Duration) {
	if m == nil {
		return
	}
	m.KeygenDuration.WithLabelValues(strconv.Itoa(bits)).Observe(d.Seconds())
}

func (m *Metrics) IncRevoked() {
	if m == nil {
		return
	}
	m.CertsRevoked.Inc()
}

func (m *Metrics) IncAuditFailure() {
	if m == nil {
		return
	}
	m.AuditFailures.Inc()
}

// ObserveHTTP registra un request terminado.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler expone g en formato Prometheus (o el default si es nil).
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
