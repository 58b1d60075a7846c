package store

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/securesign/internal/cache"
	"github.com/dropDatabas3/securesign/internal/domain/repository"
	"github.com/dropDatabas3/securesign/internal/observability/logger"
)

// DefaultPublicKeyTTL es el TTL de las claves públicas cacheadas.
const DefaultPublicKeyTTL = 10 * time.Minute

// CachedCredentials envuelve un CredentialStore y cachea ResolvePublicKey.
// Las lecturas concurrentes de la misma identidad se colapsan en una sola
// consulta al store (singleflight). Toda escritura que cambia la clave invalida
// la entrada.
type CachedCredentials struct {
	repository.CredentialStore

	cache cache.Client
	ttl   time.Duration
	sf    singleflight.Group
}

// NewCachedCredentials crea el wrapper. ttl<=0 usa DefaultPublicKeyTTL.
func NewCachedCredentials(inner repository.CredentialStore, c cache.Client, ttl time.Duration) *CachedCredentials {
	if ttl <= 0 {
		ttl = DefaultPublicKeyTTL
	}
	return &CachedCredentials{CredentialStore: inner, cache: c, ttl: ttl}
}

func pubKeyCacheKey(ref string) string { return "pubkey:" + ref }

func (c *CachedCredentials) ResolvePublicKey(ctx context.Context, ref string) (string, error) {
	key := pubKeyCacheKey(ref)
	if v, err := c.cache.Get(ctx, key); err == nil {
		return v, nil
	} else if !cache.IsNotFound(err) {
		// cache caído: seguimos contra el store
		logger.From(ctx).Warn("pubkey_cache_get_failed", logger.Component("store.cached"), logger.Err(err))
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		pem, err := c.CredentialStore.ResolvePublicKey(ctx, ref)
		if err != nil {
			return "", err
		}
		if err := c.cache.Set(ctx, key, pem, c.ttl); err != nil {
			logger.From(ctx).Warn("pubkey_cache_set_failed", logger.Component("store.cached"), logger.Err(err))
		}
		return pem, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *CachedCredentials) RecordKeyPair(ctx context.Context, ref string, kp repository.KeyPair) error {
	if err := c.CredentialStore.RecordKeyPair(ctx, ref, kp); err != nil {
		return err
	}
	c.invalidate(ctx, ref)
	return nil
}

func (c *CachedCredentials) RotateKeyPair(ctx context.Context, ref string, kp repository.KeyPair, fn func(*repository.Certificate) error) (*repository.Certificate, error) {
	cert, err := c.CredentialStore.RotateKeyPair(ctx, ref, kp, fn)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, ref)
	return cert, nil
}

func (c *CachedCredentials) invalidate(ctx context.Context, ref string) {
	if err := c.cache.Delete(ctx, pubKeyCacheKey(ref)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		logger.From(ctx).Warn("pubkey_cache_delete_failed", logger.Component("store.cached"), logger.Err(err))
	}
}
