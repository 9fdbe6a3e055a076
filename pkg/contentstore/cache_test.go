package contentstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymediarelease-backend/pkg/metadata"
)

type countingStore struct {
	fetches int
	err     error
}

func (s *countingStore) Store(ctx context.Context, payload *metadata.Payload) (*metadata.Stored, error) {
	return &metadata.Stored{URL: "ipfs://new"}, s.err
}

func (s *countingStore) Fetch(ctx context.Context, uri string) (*metadata.Stored, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return &metadata.Stored{URL: uri}, nil
}

func TestCacheMiddleware_Fetch(t *testing.T) {
	inner := &countingStore{}
	c := NewCacheMiddleware(inner)

	for range 3 {
		stored, err := c.Fetch(context.Background(), "ipfs://cid")
		require.NoError(t, err)
		assert.Equal(t, "ipfs://cid", stored.URL)
	}
	assert.Equal(t, 1, inner.fetches)
}

func TestCacheMiddleware_StoreSeedsCache(t *testing.T) {
	inner := &countingStore{}
	c := NewCacheMiddleware(inner)

	_, err := c.Store(context.Background(), &metadata.Payload{})
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "ipfs://new")
	require.NoError(t, err)
	assert.Equal(t, 0, inner.fetches)
}

func TestCacheMiddleware_ErrorsAreNotCached(t *testing.T) {
	inner := &countingStore{err: errors.New("gateway down")}
	c := NewCacheMiddleware(inner)

	_, err := c.Fetch(context.Background(), "ipfs://cid")
	assert.Error(t, err)
	_, err = c.Fetch(context.Background(), "ipfs://cid")
	assert.Error(t, err)
	assert.Equal(t, 2, inner.fetches)
}
