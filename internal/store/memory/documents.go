package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// Documents implementa repository.DocumentStore.
type Documents struct {
	mu      sync.RWMutex
	byScope map[string][]repository.SignatureRecord
}

var _ repository.DocumentStore = (*Documents)(nil)

func NewDocuments() *Documents {
	return &Documents{byScope: map[string][]repository.SignatureRecord{}}
}

func (d *Documents) PutRecord(ctx context.Context, scope string, rec repository.SignatureRecord) error {
	if rec.ID == "" || rec.ContentDigest == "" {
		return repository.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range d.byScope[scope] {
		if r.ContentDigest == rec.ContentDigest || r.ID == rec.ID {
			return repository.ErrConflict
		}
	}
	rec.Scope = scope
	d.byScope[scope] = append(d.byScope[scope], rec)
	return nil
}

func (d *Documents) FindByDigest(ctx context.Context, scope, digest string) ([]repository.SignatureRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []repository.SignatureRecord
	for _, r := range d.byScope[scope] {
		if r.ContentDigest == digest {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *Documents) ListRecords(ctx context.Context, scope string) ([]repository.SignatureRecord, error) {
	d.mu.RLock()
	out := append([]repository.SignatureRecord(nil), d.byScope[scope]...)
	d.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].SignedAt.After(out[j].SignedAt) })
	return out, nil
}

func (d *Documents) DeleteRecord(ctx context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	list := d.byScope[scope]
	for i, r := range list {
		if r.ID == id {
			d.byScope[scope] = append(list[:i:i], list[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (d *Documents) CountRecords(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, list := range d.byScope {
		n += len(list)
	}
	return n, nil
}
