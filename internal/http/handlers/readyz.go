package handlers

import (
	"context"
	"crypto/rsa"
	"net/http"
	"os"
	"sync"

	"github.com/dropDatabas3/securesign/internal/hasher"
	"github.com/dropDatabas3/securesign/internal/http/errors"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/signature"
	"github.com/dropDatabas3/securesign/internal/verification"
)

// Check es una dependencia que readyz consulta (store, cache).
type Check func(ctx context.Context) error

// SelfCheck firma y verifica un digest fijo con una clave efímera. La clave
// se genera una sola vez por proceso.
type SelfCheck struct {
	once   sync.Once
	key    *rsa.PrivateKey
	err    error
	signer *signature.Engine
	keygen func() (*rsa.PrivateKey, error)
}

// NewSelfCheck crea el self-check. keygen genera la clave efímera.
func NewSelfCheck(keygen func() (*rsa.PrivateKey, error)) *SelfCheck {
	return &SelfCheck{signer: signature.NewEngine(nil), keygen: keygen}
}

func (s *SelfCheck) Run() error {
	s.once.Do(func() { s.key, s.err = s.keygen() })
	if s.err != nil {
		return s.err
	}
	d, err := hasher.Of(hasher.Text("selfcheck"))
	if err != nil {
		return err
	}
	sig, err := s.signer.Sign(d, s.key)
	if err != nil {
		return err
	}
	if !verification.Verify(d, sig, &s.key.PublicKey) {
		return errSelfCheck
	}
	return nil
}

var errSelfCheck = errors.New(http.StatusServiceUnavailable, "SELF_CHECK_FAILED", "self-check: verificación falló")

// NewReadyzHandler responde 200 "ready" si todos los checks pasan.
func NewReadyzHandler(self *SelfCheck, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if v := os.Getenv("SERVICE_VERSION"); v != "" {
			w.Header().Set("X-Service-Version", v)
		}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check(r.Context()); err != nil {
				logger.From(r.Context()).Error("readiness check failed", logger.Component(name), logger.Err(err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail(name+" unavailable"))
				return
			}
		}
		if self != nil {
			if err := self.Run(); err != nil {
				logger.From(r.Context()).Error("crypto self-check failed", logger.Err(err))
				errors.WriteError(w, errors.ErrServiceUnavailable.WithDetail("crypto self-check failed"))
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}
}

// NewHealthzHandler es el liveness: sólo confirma que el proceso atiende.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}
