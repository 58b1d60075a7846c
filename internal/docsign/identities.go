package docsign

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/securesign/internal/audit"
	"github.com/dropDatabas3/securesign/internal/certificate"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
	"github.com/dropDatabas3/securesign/internal/security/password"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RegisterInput son los datos de alta de una identidad.
type RegisterInput struct {
	Email        string
	Password     string
	Name         string
	Organization string
	Role         string
	KeyBits      int // 0 = default del Service
}

// Registration es el resultado del alta. PrivateKeyPEM se entrega una sola vez.
type Registration struct {
	Ref           string                 `json:"identity"`
	Name          string                 `json:"name"`
	Organization  string                 `json:"organization,omitempty"`
	Role          string                 `json:"role"`
	Fingerprint   string                 `json:"fingerprint"`
	Algorithm     string                 `json:"algorithm"`
	PublicKeyPEM  string                 `json:"public_key"`
	PrivateKeyPEM string                 `json:"private_key,omitempty"`
	Certificate   repository.Certificate `json:"certificate"`
}

func normalizeRef(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Register da de alta una identidad: hashea la contraseña, genera el par RSA,
// emite el certificado y persiste todo en el CredentialStore.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	in.Email = normalizeRef(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Organization = strings.TrimSpace(in.Organization)
	log := logger.From(ctx).With(
		logger.Component("docsign"),
		logger.Op("Register"),
		logger.Identity(in.Email),
	)

	if !emailRe.MatchString(in.Email) {
		return nil, fmt.Errorf("%w: invalid email", repository.ErrInvalidInput)
	}
	if err := s.pwPolicy.Check(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidInput, err)
	}
	if in.Name == "" {
		in.Name = in.Email
	}
	switch in.Role {
	case "":
		in.Role = RoleUser
	case RoleUser, RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", repository.ErrInvalidInput, in.Role)
	}

	// chequeo temprano para no pagar un keygen por un duplicado;
	// CreateIdentity sigue siendo la fuente de verdad
	if _, err := s.creds.GetIdentity(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: identity already registered", repository.ErrConflict)
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	phc, err := password.Hash(s.pwParams, in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	kp, err := s.generate(ctx, in.KeyBits)
	if err != nil {
		return nil, err
	}
	ex, err := keys.Export(kp)
	if err != nil {
		return nil, err
	}
	cert, err := s.certs.Issue(ex.Fingerprint)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	id := &repository.Identity{
		Ref:           in.Email,
		Name:          in.Name,
		Organization:  in.Organization,
		Role:          in.Role,
		PasswordHash:  phc,
		PublicKeyPEM:  ex.PublicPEM,
		PrivateKeyPEM: ex.PrivatePEM,
		Fingerprint:   ex.Fingerprint,
		Algorithm:     kp.Algorithm,
		Certificate:   cert,
		RegisteredAt:  now,
		KeyCreatedAt:  kp.CreatedAt,
	}
	if err := s.creds.CreateIdentity(ctx, id); err != nil {
		return nil, err
	}

	log.Info("identity registered",
		logger.Fingerprint(ex.Fingerprint),
		logger.Serial(cert.Serial),
		logger.KeyBits(kp.Bits),
	)
	s.record(ctx, repository.EventUserRegistered, in.Email,
		fmt.Sprintf("Registered identity with %d-bit key", kp.Bits), audit.StatusSuccess)

	return &Registration{
		Ref:           id.Ref,
		Name:          id.Name,
		Organization:  id.Organization,
		Role:          id.Role,
		Fingerprint:   id.Fingerprint,
		Algorithm:     id.Algorithm,
		PublicKeyPEM:  id.PublicKeyPEM,
		PrivateKeyPEM: ex.PrivatePEM,
		Certificate:   cert,
	}, nil
}

// RegisterBatch registra varias identidades en paralelo, con a lo sumo
// KeygenConcurrency altas en curso. Ante el primer error cancela el resto y
// lo devuelve; las identidades ya creadas quedan persistidas y su resultado
// está en la misma posición del slice.
func (s *Service) RegisterBatch(ctx context.Context, ins []RegisterInput) ([]*Registration, error) {
	out := make([]*Registration, len(ins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range ins {
		i := i
		g.Go(func() error {
			reg, err := s.Register(gctx, ins[i])
			if err != nil {
				return fmt.Errorf("register %s: %w", normalizeRef(ins[i].Email), err)
			}
			out[i] = reg
			return nil
		})
	}
	err := g.Wait()
	return out, err
}

// Authenticate verifica email y contraseña contra el hash guardado.
func (s *Service) Authenticate(ctx context.Context, ref, plain string) (*repository.Identity, error) {
	id, err := s.creds.GetIdentity(ctx, normalizeRef(ref))
	if err != nil {
		if repository.IsNotFound(err) {
			// mismo costo argon2 que una identidad existente
			password.Verify(plain, s.dummyHash)
			return nil, repository.ErrInvalidCredentials
		}
		return nil, err
	}
	if !password.Verify(plain, id.PasswordHash) {
		return nil, repository.ErrInvalidCredentials
	}
	id.PrivateKeyPEM = ""
	return id, nil
}

// CertificateView es el certificado actual más el vencimiento calculado al
// momento de la consulta. Expired no bloquea la firma.
type CertificateView struct {
	repository.Certificate
	Expired bool `json:"expired"`
}

// Certificate devuelve el certificado actual de la identidad.
func (s *Service) Certificate(ctx context.Context, ref string) (*CertificateView, error) {
	id, err := s.creds.GetIdentity(ctx, normalizeRef(ref))
	if err != nil {
		return nil, err
	}
	return &CertificateView{
		Certificate: id.Certificate,
		Expired:     certificate.Expired(id.Certificate, s.now()),
	}, nil
}

// RevokeCertificate revoca el certificado de ref. La mutación la serializa el
// store: de dos revocaciones concurrentes una sola gana y la otra recibe
// ErrAlreadyRevoked.
func (s *Service) RevokeCertificate(ctx context.Context, operator, ref string) (*repository.Certificate, error) {
	ref = normalizeRef(ref)
	cert, err := s.creds.UpdateCertificate(ctx, ref, s.certs.Revoke)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			s.record(ctx, repository.EventCertificateRevoked, operator,
				"Revocation of "+ref+" rejected: already revoked", audit.StatusFailure)
		}
		return nil, err
	}
	s.metrics.IncRevoked()
	logger.From(ctx).Info("certificate revoked",
		logger.Component("docsign"),
		logger.Identity(ref),
		logger.Serial(cert.Serial),
	)
	s.record(ctx, repository.EventCertificateRevoked, operator,
		"Revoked certificate "+cert.Serial+" of "+ref, audit.StatusSuccess)
	return cert, nil
}

// Rotation es el resultado de RotateKeys.
type Rotation struct {
	Fingerprint   string                 `json:"fingerprint"`
	PublicKeyPEM  string                 `json:"public_key"`
	PrivateKeyPEM string                 `json:"private_key"`
	Certificate   repository.Certificate `json:"certificate"`
}

// RotateKeys reemplaza el par de claves de ref y emite un certificado nuevo
// ligado al nuevo fingerprint. Los registros firmados antes siguen
// verificando porque llevan la clave fijada. Una identidad revocada no rota:
// la revocación es irreversible.
func (s *Service) RotateKeys(ctx context.Context, ref string, bits int) (*Rotation, error) {
	ref = normalizeRef(ref)
	id, err := s.creds.GetIdentity(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !id.Certificate.Active() {
		return nil, repository.ErrCertificateRevoked
	}

	kp, err := s.generate(ctx, bits)
	if err != nil {
		return nil, err
	}
	ex, err := keys.Export(kp)
	if err != nil {
		return nil, err
	}
	fresh, err := s.certs.Issue(ex.Fingerprint)
	if err != nil {
		return nil, err
	}
	// el chequeo de arriba es optimista; el definitivo corre dentro de la
	// mutación serializada junto con la escritura de la clave
	cert, err := s.creds.RotateKeyPair(ctx, ref, kp, func(c *repository.Certificate) error {
		if !c.Active() {
			return repository.ErrCertificateRevoked
		}
		*c = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.From(ctx).Info("keys rotated",
		logger.Component("docsign"),
		logger.Identity(ref),
		logger.Fingerprint(ex.Fingerprint),
		logger.Serial(cert.Serial),
	)
	s.record(ctx, repository.EventKeysRotated, ref,
		fmt.Sprintf("Rotated to %d-bit key %s", kp.Bits, ex.Fingerprint), audit.StatusSuccess)

	return &Rotation{
		Fingerprint:   ex.Fingerprint,
		PublicKeyPEM:  ex.PublicPEM,
		PrivateKeyPEM: ex.PrivatePEM,
		Certificate:   *cert,
	}, nil
}
