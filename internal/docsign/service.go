// Package docsign orquesta el subsistema de firma: registro de identidades,
// firma y verificación de documentos, revocación y rotación de claves.
//
// Los componentes del core (hasher, keys, signature, verification,
// certificate) no conocen stores ni auditoría; el Service es quien los une
// con el CredentialStore, el DocumentStore y el AuditSink.
package docsign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/certificate"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/metrics"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/security/password"
	"github.com/dropDatabas3/securesign/internal/signature"
	"github.com/dropDatabas3/securesign/internal/verification"
)

// DefaultKeygenConcurrency limita las generaciones RSA simultáneas.
const DefaultKeygenConcurrency = 2

// DefaultAuditLimit es el tamaño de página del log de auditoría.
const DefaultAuditLimit = 100

const dummyPassword = "securesign-no-such-identity"

// Deps contiene las dependencias del Service. Credentials, Documents y
// Audit son obligatorias; el resto toma defaults.
type Deps struct {
	Credentials repository.CredentialStore
	Documents   repository.DocumentStore
	Audit       repository.AuditSink
	// AuditReader lista eventos. nil = Audit si implementa Recent.
	AuditReader repository.AuditReader

	Keys    *keys.Manager
	Signer  *signature.Engine
	Certs   *certificate.Lifecycle
	Metrics *metrics.Metrics // nil = sin métricas

	PasswordParams password.Params
	PasswordPolicy password.Policy

	// KeyBits es el tamaño usado cuando el request no pide uno. 0 = 2048.
	KeyBits           int
	KeygenConcurrency int
	Now               func() time.Time
}

// Service implementa las operaciones del sistema de firma.
// Es seguro para uso concurrente.
type Service struct {
	creds    repository.CredentialStore
	docs     repository.DocumentStore
	sink     repository.AuditSink
	reader   repository.AuditReader
	keys     *keys.Manager
	signer   *signature.Engine
	verifier *verification.Engine
	certs    *certificate.Lifecycle
	metrics  *metrics.Metrics

	pwParams    password.Params
	pwPolicy    password.Policy
	dummyHash   string // se verifica contra identidades inexistentes
	keyBits     int
	concurrency int
	keygen      *semaphore.Weighted
	now         func() time.Time
}

// New crea el Service.
func New(d Deps) (*Service, error) {
	if d.Credentials == nil || d.Documents == nil {
		return nil, errors.New("docsign: credentials and documents stores are required")
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogSink(nil)
	}
	if d.AuditReader == nil {
		if r, ok := d.Audit.(repository.AuditReader); ok {
			d.AuditReader = r
		}
	}
	if d.Keys == nil {
		d.Keys = keys.NewManager(keys.Config{DefaultBits: d.KeyBits})
	}
	if d.Signer == nil {
		d.Signer = signature.NewEngine(nil)
	}
	if d.Certs == nil {
		d.Certs = certificate.New(certificate.Config{})
	}
	if d.PasswordParams == (password.Params{}) {
		d.PasswordParams = password.Default
	}
	if d.PasswordPolicy.MinLength <= 0 {
		d.PasswordPolicy.MinLength = password.DefaultMinLength
	}
	if d.KeygenConcurrency <= 0 {
		d.KeygenConcurrency = DefaultKeygenConcurrency
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	dummy, err := password.Hash(d.PasswordParams, dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("docsign: dummy password hash: %w", err)
	}

	return &Service{
		creds:       d.Credentials,
		docs:        d.Documents,
		sink:        d.Audit,
		reader:      d.AuditReader,
		keys:        d.Keys,
		signer:      d.Signer,
		verifier:    verification.NewEngine(d.Documents, d.Credentials),
		certs:       d.Certs,
		metrics:     d.Metrics,
		pwParams:    d.PasswordParams,
		pwPolicy:    d.PasswordPolicy,
		dummyHash:   dummy,
		keyBits:     d.KeyBits,
		concurrency: d.KeygenConcurrency,
		keygen:      semaphore.NewWeighted(int64(d.KeygenConcurrency)),
		now:         d.Now,
	}, nil
}

// generate genera un par respetando el límite de keygen concurrentes.
func (s *Service) generate(ctx context.Context, bits int) (repository.KeyPair, error) {
	if bits == 0 {
		bits = s.keyBits
	}
	if err := s.keygen.Acquire(ctx, 1); err != nil {
		return repository.KeyPair{}, err
	}
	defer s.keygen.Release(1)

	start := time.Now()
	kp, err := s.keys.GenerateKeyPair(ctx, bits)
	if err != nil {
		return repository.KeyPair{}, err
	}
	s.metrics.ObserveKeygen(kp.Bits, time.Since(start))
	return kp, nil
}

// record escribe un evento de auditoría. Un sink caído no hace fallar la
// operación que ya se completó: se loguea y se cuenta.
func (s *Service) record(ctx context.Context, kind, actor, description, status string) {
	ev := audit.New(kind, actor, description, status)
	if err := s.sink.Append(ctx, ev); err != nil {
		s.metrics.IncAuditFailure()
		logger.From(ctx).Warn("audit append failed",
			logger.Component("docsign"),
			logger.EventKind(kind),
			logger.Err(err),
		)
	}
}

// AuditLog lista los eventos más recientes primero. limit<=0 usa 100.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]repository.AuditEvent, error) {
	if s.reader == nil {
		return nil, audit.ErrNotReadable
	}
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	return s.reader.Recent(ctx, limit)
}

// Stats resume el estado del sistema.
type Stats struct {
	Identities          int `json:"total_users"`
	ActiveCertificates  int `json:"active_certificates"`
	RevokedCertificates int `json:"revoked_certificates"`
	Documents           int `json:"total_documents"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ids, err := s.creds.ListIdentities(ctx)
	if err != nil {
		return Stats{}, err
	}
	var st Stats
	st.Identities = len(ids)
	for _, id := range ids {
		switch id.Certificate.Status {
		case repository.CertificateActive:
			st.ActiveCertificates++
		case repository.CertificateRevoked:
			st.RevokedCertificates++
		}
	}
	if st.Documents, err = s.docs.CountRecords(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}
