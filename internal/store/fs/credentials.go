package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
	"github.com/dropDatabas3/securesign/internal/security/secretbox"
	"github.com/dropDatabas3/securesign/internal/util/atomicwrite"
)

// identityFile es la forma en disco de una identidad.
type identityFile struct {
	Ref           string                 `json:"ref"`
	Name          string                 `json:"name"`
	Organization  string                 `json:"organization,omitempty"`
	Role          string                 `json:"role"`
	PasswordHash  string                 `json:"password_hash"`
	PublicKeyPEM  string                 `json:"public_key_pem,omitempty"`
	PrivateKeyEnc string                 `json:"private_key_enc,omitempty"` // sellado con secretbox si hay master key
	Fingerprint   string                 `json:"fingerprint,omitempty"`
	Algorithm     string                 `json:"algorithm,omitempty"`
	Certificate   repository.Certificate `json:"certificate"`
	RegisteredAt  time.Time              `json:"registered_at"`
	KeyCreatedAt  time.Time              `json:"key_created_at,omitempty"`
}

// Credentials implementa repository.CredentialStore sobre archivos.
type Credentials struct {
	dir string
	box *secretbox.Box
	mu  sync.RWMutex
}

var _ repository.CredentialStore = (*Credentials)(nil)

// NewCredentials crea el store bajo root. box=nil guarda la clave privada en claro
// (sólo aceptable en desarrollo).
func NewCredentials(root string, box *secretbox.Box) (*Credentials, error) {
	dir := join(root, identitiesDir)
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &Credentials{dir: dir, box: box}, nil
}

func (s *Credentials) path(ref string) (string, error) {
	name, err := fileName(ref)
	if err != nil {
		return "", err
	}
	return join(s.dir, name), nil
}

func (s *Credentials) read(ref string) (*identityFile, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if isNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}
	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal identity %s: %w", ref, err)
	}
	return &f, nil
}

func (s *Credentials) write(f *identityFile) error {
	p, err := s.path(f.Ref)
	if err != nil {
		return err
	}
	return atomicwrite.WriteJSON(p, f, filePerm)
}

func (s *Credentials) seal(pemText string) (string, error) {
	if pemText == "" || s.box == nil {
		return pemText, nil
	}
	return s.box.Seal(pemText)
}

func (s *Credentials) open(enc string) (string, error) {
	if enc == "" || !secretbox.IsSealed(enc) {
		return enc, nil
	}
	if s.box == nil {
		return "", fmt.Errorf("private key is sealed but no master key is configured")
	}
	pt, err := s.box.Open(enc)
	if err != nil {
		return "", fmt.Errorf("open private key: %w", err)
	}
	return pt, nil
}

func (s *Credentials) toIdentity(f *identityFile, withPrivate bool) (*repository.Identity, error) {
	id := &repository.Identity{
		Ref:          f.Ref,
		Name:         f.Name,
		Organization: f.Organization,
		Role:         f.Role,
		PasswordHash: f.PasswordHash,
		PublicKeyPEM: f.PublicKeyPEM,
		Fingerprint:  f.Fingerprint,
		Algorithm:    f.Algorithm,
		Certificate:  f.Certificate,
		RegisteredAt: f.RegisteredAt,
		KeyCreatedAt: f.KeyCreatedAt,
	}
	if withPrivate {
		pt, err := s.open(f.PrivateKeyEnc)
		if err != nil {
			return nil, err
		}
		id.PrivateKeyPEM = pt
	}
	return id, nil
}

func (s *Credentials) CreateIdentity(ctx context.Context, id *repository.Identity) error {
	if id == nil {
		return repository.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.read(id.Ref); err == nil {
		return repository.ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	enc, err := s.seal(id.PrivateKeyPEM)
	if err != nil {
		return err
	}
	return s.write(&identityFile{
		Ref:           id.Ref,
		Name:          id.Name,
		Organization:  id.Organization,
		Role:          id.Role,
		PasswordHash:  id.PasswordHash,
		PublicKeyPEM:  id.PublicKeyPEM,
		PrivateKeyEnc: enc,
		Fingerprint:   id.Fingerprint,
		Algorithm:     id.Algorithm,
		Certificate:   id.Certificate,
		RegisteredAt:  id.RegisteredAt,
		KeyCreatedAt:  id.KeyCreatedAt,
	})
}

func (s *Credentials) GetIdentity(ctx context.Context, ref string) (*repository.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.read(ref)
	if err != nil {
		return nil, err
	}
	return s.toIdentity(f, true)
}

func (s *Credentials) ListIdentities(ctx context.Context) ([]repository.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	out := make([]repository.Identity, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		var f identityFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", e.Name(), err)
		}
		id, _ := s.toIdentity(&f, false)
		out = append(out, *id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *Credentials) RecordKeyPair(ctx context.Context, ref string, kp repository.KeyPair) error {
	ex, err := keys.Export(kp)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(ref)
	if err != nil {
		return err
	}
	enc, err := s.seal(ex.PrivatePEM)
	if err != nil {
		return err
	}
	f.PublicKeyPEM = ex.PublicPEM
	f.PrivateKeyEnc = enc
	f.Fingerprint = ex.Fingerprint
	f.Algorithm = kp.Algorithm
	f.KeyCreatedAt = kp.CreatedAt
	return s.write(f)
}

func (s *Credentials) ResolvePublicKey(ctx context.Context, ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.read(ref)
	if err != nil {
		return "", err
	}
	if f.PublicKeyPEM == "" {
		return "", repository.ErrNotFound
	}
	return f.PublicKeyPEM, nil
}

func (s *Credentials) ResolvePrivateKey(ctx context.Context, ref string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, err := s.read(ref)
	if err != nil {
		return "", err
	}
	if f.PrivateKeyEnc == "" {
		return "", repository.ErrNotFound
	}
	return s.open(f.PrivateKeyEnc)
}

func (s *Credentials) UpdateCertificate(ctx context.Context, ref string, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(ref)
	if err != nil {
		return nil, err
	}
	cert := f.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}
	f.Certificate = cert
	if err := s.write(f); err != nil {
		return nil, err
	}
	return &cert, nil
}

// RotateKeyPair escribe clave y certificado en un único archivo atómico.
func (s *Credentials) RotateKeyPair(ctx context.Context, ref string, kp repository.KeyPair, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	ex, err := keys.Export(kp)
	if err != nil {
		return nil, err
	}
	enc, err := s.seal(ex.PrivatePEM)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(ref)
	if err != nil {
		return nil, err
	}
	cert := f.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}
	f.PublicKeyPEM = ex.PublicPEM
	f.PrivateKeyEnc = enc
	f.Fingerprint = ex.Fingerprint
	f.Algorithm = kp.Algorithm
	f.KeyCreatedAt = kp.CreatedAt
	f.Certificate = cert
	if err := s.write(f); err != nil {
		return nil, err
	}
	return &cert, nil
}
