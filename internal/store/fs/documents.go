package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/util/atomicwrite"
)

// Documents implementa repository.DocumentStore con un archivo por scope.
type Documents struct {
	dir string
	mu  sync.RWMutex
}

var _ repository.DocumentStore = (*Documents)(nil)

func NewDocuments(root string) (*Documents, error) {
	dir := join(root, documentsDir)
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &Documents{dir: dir}, nil
}

func (d *Documents) load(scope string) ([]repository.SignatureRecord, string, error) {
	name, err := fileName(scope)
	if err != nil {
		return nil, "", err
	}
	p := join(d.dir, name)
	data, err := os.ReadFile(p)
	if err != nil {
		if isNotExist(err) {
			return nil, p, nil
		}
		return nil, p, fmt.Errorf("read records: %w", err)
	}
	var list []repository.SignatureRecord
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, p, fmt.Errorf("unmarshal records for %s: %w", scope, err)
	}
	return list, p, nil
}

func (d *Documents) PutRecord(ctx context.Context, scope string, rec repository.SignatureRecord) error {
	if rec.ID == "" || rec.ContentDigest == "" {
		return repository.ErrInvalidInput
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	list, p, err := d.load(scope)
	if err != nil {
		return err
	}
	for _, r := range list {
		if r.ContentDigest == rec.ContentDigest || r.ID == rec.ID {
			return repository.ErrConflict
		}
	}
	rec.Scope = scope
	return atomicwrite.WriteJSON(p, append(list, rec), filePerm)
}

func (d *Documents) FindByDigest(ctx context.Context, scope, digest string) ([]repository.SignatureRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	list, _, err := d.load(scope)
	if err != nil {
		return nil, err
	}
	var out []repository.SignatureRecord
	for _, r := range list {
		if r.ContentDigest == digest {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *Documents) ListRecords(ctx context.Context, scope string) ([]repository.SignatureRecord, error) {
	d.mu.RLock()
	list, _, err := d.load(scope)
	d.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].SignedAt.After(list[j].SignedAt) })
	return list, nil
}

func (d *Documents) DeleteRecord(ctx context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	list, p, err := d.load(scope)
	if err != nil {
		return err
	}
	for i, r := range list {
		if r.ID == id {
			return atomicwrite.WriteJSON(p, append(list[:i:i], list[i+1:]...), filePerm)
		}
	}
	return repository.ErrNotFound
}

func (d *Documents) CountRecords(ctx context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("list scopes: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(join(d.dir, e.Name()))
		if err != nil {
			return 0, err
		}
		var list []repository.SignatureRecord
		if err := json.Unmarshal(data, &list); err != nil {
			return 0, fmt.Errorf("unmarshal %s: %w", e.Name(), err)
		}
		n += len(list)
	}
	return n, nil
}
