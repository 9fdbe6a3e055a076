package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/locator"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
)

type client struct {
	base     string
	token    string
	client   http.Client
	resolver *locator.Resolver
}

type storeResponse struct {
	Ok    bool `json:"ok"`
	Value struct {
		IPNFT string            `json:"ipnft"`
		URL   string            `json:"url"`
		Data  metadata.Document `json:"data"`
	} `json:"value"`
	Error *struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

var ErrNotFound = contentstore.ErrNotFound

// Store pins every file of the payload together with its metadata document in
// one request. Either the whole bundle is pinned or an error is returned.
func (c *client) Store(ctx context.Context, payload *metadata.Payload) (*metadata.Stored, error) {
	if payload == nil {
		return nil, models.NewInvalidInput("payload", "is empty")
	}

	body, contentType, err := encodeStoreRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode store request: %w", err)
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/store", body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	r.Header.Set("Content-Type", contentType)
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.client.Do(r)
	if err != nil {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer res.Body.Close()

	var resp storeResponse
	if dErr := json.NewDecoder(res.Body).Decode(&resp); dErr != nil {
		return nil, &models.StorageUnavailableError{
			Err: fmt.Errorf("status code is %d, failed to decode response: %w", res.StatusCode, dErr),
		}
	}

	if res.StatusCode != http.StatusOK || !resp.Ok {
		msg := http.StatusText(res.StatusCode)
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, &models.StorageUnavailableError{
			Err: fmt.Errorf("status code is %d, error: %s", res.StatusCode, msg),
		}
	}

	if resp.Value.URL == "" {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("empty url in response")}
	}

	return &metadata.Stored{
		URL:      resp.Value.URL,
		Document: resp.Value.Data,
	}, nil
}

// Fetch reads a stored metadata document back through the gateway.
func (c *client) Fetch(ctx context.Context, uri string) (*metadata.Stored, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolver.Resolve(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := c.client.Do(r)
	if err != nil {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if res.StatusCode != http.StatusOK {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("status code is %d", res.StatusCode)}
	}

	var doc metadata.Document
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &metadata.Stored{URL: uri, Document: doc}, nil
}

func encodeStoreRequest(payload *metadata.Payload) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	// file fields stay empty in meta, the service fills them with locators
	meta, err := json.Marshal(payload.Document(func(metadata.File) string { return "" }))
	if err != nil {
		return nil, "", err
	}

	if err = w.WriteField("meta", string(meta)); err != nil {
		return nil, "", err
	}

	for _, f := range payload.Files() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(f.Field), escapeQuotes(f.Blob.Name)))
		h.Set("Content-Type", f.Blob.ContentType)

		part, pErr := w.CreatePart(h)
		if pErr != nil {
			return nil, "", pErr
		}
		if _, pErr = part.Write(f.Blob.Data); pErr != nil {
			return nil, "", pErr
		}
	}

	if err = w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func NewClient(base, token string, resolver *locator.Resolver) contentstore.Client {
	return &client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		client: http.Client{
			Timeout: 5 * time.Minute,
		},
		resolver: resolver,
	}
}
