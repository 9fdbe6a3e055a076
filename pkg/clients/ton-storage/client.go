// Request shapes follow the tonutils-storage daemon HTTP API.
// https://github.com/xssnick/tonutils-storage
package tonstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the subset of the storage daemon API needed to publish a
// release directory as a bag.
type Client interface {
	CreateBag(ctx context.Context, description, path string) (bagID string, err error)
	BagDetails(ctx context.Context, bagID string) (*BagDetailed, error)
	RemoveBag(ctx context.Context, bagID string, withFiles bool) error
}

type client struct {
	base        string
	client      http.Client
	credentials *Credentials
}

type Credentials struct {
	Login    string
	Password string
}

var ErrNotFound = errors.New("not found")

// DaemonError is a non-2xx answer of the storage daemon.
type DaemonError struct {
	Status  int
	Message string
}

func (e *DaemonError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("storage daemon answered %d", e.Status)
	}
	return fmt.Sprintf("storage daemon answered %d: %s", e.Status, e.Message)
}

func (c *client) CreateBag(ctx context.Context, description, path string) (string, error) {
	req := struct {
		Description string `json:"description"`
		Path        string `json:"path"`
	}{
		Description: description,
		Path:        path,
	}

	var res struct {
		BagID string `json:"bag_id"`
	}

	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/create", req, &res); err != nil {
		return "", fmt.Errorf("failed to create bag: %w", err)
	}

	if res.BagID == "" {
		return "", errors.New("empty bag ID in response")
	}

	return strings.ToLower(res.BagID), nil
}

func (c *client) BagDetails(ctx context.Context, bagID string) (*BagDetailed, error) {
	var res BagDetailed
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/details?bag_id="+url.QueryEscape(bagID), nil, &res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to get bag details: %w", err)
	}

	// merkle hash appeared together with files info, its absence means the daemon is outdated
	if res.InfoLoaded && res.MerkleHash == "" {
		return nil, errors.New("storage daemon is too old, merkle hash is missing")
	}

	return &res, nil
}

func (c *client) RemoveBag(ctx context.Context, bagID string, withFiles bool) error {
	req := struct {
		BagID     string `json:"bag_id"`
		WithFiles bool   `json:"with_files"`
	}{
		BagID:     bagID,
		WithFiles: withFiles,
	}

	var res Result
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/remove", req, &res); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove bag: %w", err)
	}

	if !res.Ok {
		return &DaemonError{Status: http.StatusOK, Message: res.Error}
	}

	return nil
}

func (c *client) doRequest(ctx context.Context, method, path string, req, resp any) error {
	var body io.Reader
	if req != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(req); err != nil {
			return fmt.Errorf("failed to encode request data: %w", err)
		}
		body = buf
	}

	r, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if c.credentials != nil {
		r.SetBasicAuth(c.credentials.Login, c.credentials.Password)
	}

	res, err := c.client.Do(r)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if res.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		var e Result
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &DaemonError{Status: res.StatusCode, Message: e.Error}
	}

	if resp == nil {
		return nil
	}

	if err = json.NewDecoder(res.Body).Decode(resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func NewClient(base string, credentials *Credentials) Client {
	return &client{
		base: strings.TrimRight(base, "/"),
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		credentials: credentials,
	}
}
