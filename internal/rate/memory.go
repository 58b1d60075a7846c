package rate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter es la variante in-process (una sola réplica, dev y tests).
// Los contadores viven en go-cache y expiran con la ventana.
type MemoryLimiter struct {
	c      *gocache.Cache
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	cfg = cfg.normalized()
	return &MemoryLimiter{
		c:      gocache.New(cfg.Window, 2*cfg.Window),
		prefix: cfg.Prefix,
		max:    int64(cfg.Max),
		window: cfg.Window,
		now:    time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now().UTC()
	k := windowKey(l.prefix, key, now, l.window)
	ttl := now.Truncate(l.window).Add(l.window).Sub(now)

	// Add falla si la key ya existe; en ese caso sólo incrementamos
	_ = l.c.Add(k, int64(0), ttl)
	hits, err := l.c.IncrementInt64(k, 1)
	if err != nil {
		// expiró entre Add e Increment: arranca ventana nueva
		l.c.Set(k, int64(1), ttl)
		hits = 1
	}
	return result(hits, l.max, ttl, l.window), nil
}
