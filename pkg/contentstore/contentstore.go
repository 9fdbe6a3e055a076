// Package contentstore defines the content-addressed storage contract shared
// by the IPFS and TON Storage backends.
package contentstore

import (
	"context"
	"errors"

	"mymediarelease-backend/pkg/metadata"
)

// ErrNotFound is returned by Fetch when no document exists at the locator.
var ErrNotFound = errors.New("content not found")

type Client interface {
	Store(ctx context.Context, payload *metadata.Payload) (*metadata.Stored, error)
	Fetch(ctx context.Context, uri string) (*metadata.Stored, error)
}
