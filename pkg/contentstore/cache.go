package contentstore

import (
	"context"
	"time"

	"mymediarelease-backend/pkg/cache"
	"mymediarelease-backend/pkg/metadata"
)

type cacheMiddleware struct {
	cache *cache.SimpleCache
	svc   Client
}

func (c *cacheMiddleware) Store(ctx context.Context, payload *metadata.Payload) (*metadata.Stored, error) {
	stored, err := c.svc.Store(ctx, payload)
	if err != nil {
		return nil, err
	}

	c.cache.Set(stored.URL, stored)

	return stored, nil
}

// Fetch results are cached for long: content under a locator never changes.
func (c *cacheMiddleware) Fetch(ctx context.Context, uri string) (*metadata.Stored, error) {
	if cached, found := c.cache.Get(uri); found {
		return cached.(*metadata.Stored), nil
	}

	stored, err := c.svc.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	c.cache.Set(uri, stored)

	return stored, nil
}

func NewCacheMiddleware(svc Client) Client {
	return &cacheMiddleware{
		cache: cache.NewSimpleCache(24 * time.Hour),
		svc:   svc,
	}
}
