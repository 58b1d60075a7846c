// Package memory implementa los stores del dominio en memoria.
// Pensado para desarrollo, tests y el modo "memory" del servicio: nada
// sobrevive a un reinicio.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/keys"
)

// Credentials implementa repository.CredentialStore.
type Credentials struct {
	mu   sync.RWMutex
	byID map[string]*repository.Identity
}

var _ repository.CredentialStore = (*Credentials)(nil)

func NewCredentials() *Credentials {
	return &Credentials{byID: map[string]*repository.Identity{}}
}

func (m *Credentials) CreateIdentity(ctx context.Context, id *repository.Identity) error {
	if id == nil || id.Ref == "" {
		return repository.ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id.Ref]; ok {
		return repository.ErrConflict
	}
	cp := *id
	m.byID[id.Ref] = &cp
	return nil
}

func (m *Credentials) GetIdentity(ctx context.Context, ref string) (*repository.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byID[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *id
	return &cp, nil
}

func (m *Credentials) ListIdentities(ctx context.Context) ([]repository.Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]repository.Identity, 0, len(m.byID))
	for _, id := range m.byID {
		cp := *id
		// no exponemos la clave privada
		cp.PrivateKeyPEM = ""
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (m *Credentials) RecordKeyPair(ctx context.Context, ref string, kp repository.KeyPair) error {
	ex, err := keys.Export(kp)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byID[ref]
	if !ok {
		return repository.ErrNotFound
	}
	id.PublicKeyPEM = ex.PublicPEM
	id.PrivateKeyPEM = ex.PrivatePEM
	id.Fingerprint = ex.Fingerprint
	id.Algorithm = kp.Algorithm
	id.KeyCreatedAt = kp.CreatedAt
	return nil
}

func (m *Credentials) ResolvePublicKey(ctx context.Context, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byID[ref]
	if !ok || id.PublicKeyPEM == "" {
		return "", repository.ErrNotFound
	}
	return id.PublicKeyPEM, nil
}

func (m *Credentials) ResolvePrivateKey(ctx context.Context, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byID[ref]
	if !ok || id.PrivateKeyPEM == "" {
		return "", repository.ErrNotFound
	}
	return id.PrivateKeyPEM, nil
}

// UpdateCertificate serializa la mutación con el lock de escritura: dos
// revocaciones concurrentes no pueden ver ambas el estado Active.
func (m *Credentials) UpdateCertificate(ctx context.Context, ref string, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byID[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cert := id.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}
	id.Certificate = cert
	out := cert
	return &out, nil
}

func (m *Credentials) RotateKeyPair(ctx context.Context, ref string, kp repository.KeyPair, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	ex, err := keys.Export(kp)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byID[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cert := id.Certificate
	if err := fn(&cert); err != nil {
		return nil, err
	}
	id.PublicKeyPEM = ex.PublicPEM
	id.PrivateKeyPEM = ex.PrivatePEM
	id.Fingerprint = ex.Fingerprint
	id.Algorithm = kp.Algorithm
	id.KeyCreatedAt = kp.CreatedAt
	id.Certificate = cert
	out := cert
	return &out, nil
}
