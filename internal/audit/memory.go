package audit

import (
	"context"
	"sync"

	"github.com/dropDatabas3/securesign/internal/domain/repository"
)

// DefaultCapacity es la cantidad de eventos que retiene MemorySink.
const DefaultCapacity = 100

// MemorySink retiene los últimos N eventos en un ring buffer.
type MemorySink struct {
	mu    sync.RWMutex
	buf   []repository.AuditEvent
	next  int
	count int
}

func NewMemorySink(capacity int) *MemorySink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemorySink{buf: make([]repository.AuditEvent, capacity)}
}

func (m *MemorySink) Append(ctx context.Context, ev repository.AuditEvent) error {
	m.mu.Lock()
	m.buf[m.next] = ev
	m.next = (m.next + 1) % len(m.buf)
	if m.count < len(m.buf) {
		m.count++
	}
	m.mu.Unlock()
	return nil
}

// Recent devuelve hasta limit eventos, más nuevos primero. limit<=0 devuelve todos.
func (m *MemorySink) Recent(ctx context.Context, limit int) ([]repository.AuditEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := m.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]repository.AuditEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := (m.next - i + len(m.buf)) % len(m.buf)
		out = append(out, m.buf[idx])
	}
	return out, nil
}
