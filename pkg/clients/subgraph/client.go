package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"
)

const DefaultPollInterval = time.Second

const releaseFields = `
	id
	symbol
	stakeholders {
		id
		share
	}
	payouts {
		id
		amount
		createdAt
		transactionHash
	}
	metadata {
		key
		value
	}
	saleData {
		totalSold
		maxSupply
		totalEarnings
		totalReleased
		royaltiesPercentage
		salePrice
	}`

const releaseQuery = `query Release($id: ID!) {
	mediaItem(id: $id) {` + releaseFields + `
	}
}`

const creatorReleasesQuery = `query CreatorReleases($creator: String!) {
	mediaItems(where: {creator: $creator}, orderBy: createdAt, orderDirection: desc) {` + releaseFields + `
	}
}`

type Client interface {
	// FetchRelease returns nil without an error while the index has not seen the release.
	FetchRelease(ctx context.Context, id string) (*Release, error)
	FetchCreatorReleases(ctx context.Context, creator string) ([]Release, error)
	Watch(ctx context.Context, id string, interval time.Duration) iter.Seq2[*Release, error]
}

type client struct {
	endpoint string
	client   http.Client
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// QueryError carries the errors reported by the index for an accepted query.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "index query failed: " + strings.Join(e.Messages, "; ")
}

func (c *client) FetchRelease(ctx context.Context, id string) (*Release, error) {
	var data struct {
		MediaItem *Release `json:"mediaItem"`
	}

	if err := c.query(ctx, releaseQuery, map[string]any{"id": strings.ToLower(id)}, &data); err != nil {
		return nil, err
	}

	return data.MediaItem, nil
}

func (c *client) FetchCreatorReleases(ctx context.Context, creator string) ([]Release, error) {
	var data struct {
		MediaItems []Release `json:"mediaItems"`
	}

	if err := c.query(ctx, creatorReleasesQuery, map[string]any{"creator": strings.ToLower(creator)}, &data); err != nil {
		return nil, err
	}

	if data.MediaItems == nil {
		return []Release{}, nil
	}
	return data.MediaItems, nil
}

// Watch polls the index every interval until the release appears. Every tick
// yields the current result, nil while the release is not indexed yet. The
// sequence ends after the release is yielded, when the consumer stops or when
// ctx is done. Query errors are yielded and polling goes on.
func (c *client) Watch(ctx context.Context, id string, interval time.Duration) iter.Seq2[*Release, error] {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return func(yield func(*Release, error) bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			release, err := c.FetchRelease(ctx, id)
			if ctx.Err() != nil {
				return
			}

			if !yield(release, err) {
				return
			}

			if err == nil && release != nil {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

func (c *client) query(ctx context.Context, query string, variables map[string]any, data any) error {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(graphqlRequest{
		Query:     query,
		Variables: variables,
	}); err != nil {
		return fmt.Errorf("failed to encode request data: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	r.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(r)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("status code is %d", res.StatusCode)
	}

	var resp struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err = json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(resp.Errors) > 0 {
		qErr := &QueryError{}
		for _, e := range resp.Errors {
			qErr.Messages = append(qErr.Messages, e.Message)
		}
		return qErr
	}

	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return nil
	}

	if err = json.Unmarshal(resp.Data, data); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

func NewClient(endpoint string) Client {
	return &client{
		endpoint: endpoint,
		client: http.Client{
			Timeout: 15 * time.Second,
		},
	}
}
