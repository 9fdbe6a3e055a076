package httpServer

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
	v1 "mymediarelease-backend/pkg/models/api/v1"
	"mymediarelease-backend/pkg/models/db"
	"mymediarelease-backend/pkg/notify"
	releasesService "mymediarelease-backend/pkg/services/releases"
	"mymediarelease-backend/pkg/session"
)

const adminToken = "let-me-in"

var releaseAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")

type fakeReleases struct {
	bundle     metadata.AssetBundle
	params     releasesService.ContractParams
	publishErr error
	view       *subgraph.ReleaseView
	watch      []*subgraph.ReleaseView
	released   []common.Address
	fetchErr   error
}

func (f *fakeReleases) Publish(ctx context.Context, sess *session.Session, bundle metadata.AssetBundle, params releasesService.ContractParams) (*releasesService.PublishResult, error) {
	f.bundle, f.params = bundle, params
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return &releasesService.PublishResult{
		ID:       "0190c3a4-0000-6000-8000-000000000000",
		Address:  releaseAddr,
		Metadata: &metadata.Stored{URL: "ipfs://bafy/metadata.json"},
	}, nil
}

func (f *fakeReleases) ReleaseFunds(ctx context.Context, sess *session.Session, contract, payee common.Address) (*types.Receipt, error) {
	f.released = append(f.released, contract, payee)
	return &types.Receipt{BlockNumber: big.NewInt(12), GasUsed: 21000}, nil
}

func (f *fakeReleases) GetRelease(ctx context.Context, id string) (*subgraph.ReleaseView, error) {
	if !common.IsHexAddress(id) {
		return nil, models.NewInvalidInput("id", "is not a valid address")
	}
	return f.view, nil
}

func (f *fakeReleases) WatchRelease(ctx context.Context, id string) iter.Seq2[*subgraph.ReleaseView, error] {
	return func(yield func(*subgraph.ReleaseView, error) bool) {
		for _, v := range f.watch {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func (f *fakeReleases) CreatorReleases(ctx context.Context, creator string) ([]subgraph.ReleaseView, error) {
	return []subgraph.ReleaseView{}, nil
}

func (f *fakeReleases) GetMetadata(ctx context.Context, uri string) (*metadata.Stored, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &metadata.Stored{URL: uri}, nil
}

func (f *fakeReleases) GetPublish(ctx context.Context, id string) (*db.Publish, error) {
	return nil, nil
}

func (f *fakeReleases) PublishHistory(ctx context.Context, creator string) ([]db.Publish, error) {
	return []db.Publish{{ID: "p1", Status: db.PublishStatusIndexed}}, nil
}

func newTestApp(t *testing.T, svc *fakeReleases, hub *notify.Hub) *fiber.App {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sess, err := session.NewFromKey(key, big.NewInt(137))
	require.NoError(t, err)

	hash := md5.Sum([]byte(adminToken))

	app := fiber.New()
	h := New(app, svc, hub, sess, time.Second, []string{fmt.Sprintf("%x", hash[:])}, "test", "http", slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.RegisterRoutes()

	return app
}

func publishForm(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := map[string]string{
		"artist":       "A",
		"name":         "Track",
		"description":  "First single",
		"symbol":       "TRK",
		"sale_price":   "1.5",
		"quantity":     "100",
		"royalty":      "5",
		"attributes":   `[{"trait_type":"Mood","value":"Up Beat "}]`,
		"stakeholders": `[{"address":"0x0000000000000000000000000000000000000001","share":60},{"address":"0x0000000000000000000000000000000000000002","share":40}]`,
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}

	for _, f := range []struct{ field, name, contentType, data string }{
		{"image", "cover.png", "image/png", "png"},
		{"audio", "track.mp3", "audio/mpeg", "mp3"},
		{"documents", "a.pdf", "application/pdf", "a"},
		{"documents", "b.pdf", "application/pdf", "b"},
	} {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.field, f.name))
		hdr.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.data))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestPublishRelease(t *testing.T) {
	svc := &fakeReleases{}
	app := newTestApp(t, svc, notify.NewHub(0))

	body, contentType := publishForm(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out v1.PublishResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, releaseAddr.Hex(), out.Address)
	assert.Equal(t, "ipfs://bafy/metadata.json", out.MetadataURL)

	assert.Equal(t, "A", svc.bundle.Artist)
	require.NotNil(t, svc.bundle.Image)
	assert.Equal(t, "image/png", svc.bundle.Image.ContentType)
	assert.Equal(t, []byte("mp3"), svc.bundle.Audio.Data)
	assert.Nil(t, svc.bundle.Licence)
	assert.Len(t, svc.bundle.Documents, 2)
	assert.Equal(t, "Up Beat ", svc.bundle.Attributes[0].Value)

	assert.Equal(t, "1.5", svc.params.SalePrice)
	assert.Equal(t, "5", svc.params.RoyaltyPercentage)
	assert.Equal(t, uint64(100), svc.params.Quantity)
	require.Len(t, svc.params.Stakeholders, 2)
	assert.Equal(t, uint64(60), svc.params.Stakeholders[0].Share)
}

func TestPublishRelease_RequiresAdmin(t *testing.T) {
	app := newTestApp(t, &fakeReleases{}, notify.NewHub(0))

	body, contentType := publishForm(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body, contentType = publishForm(t)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/releases", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer wrong")

	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestPublishRelease_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"invalid input", models.NewInvalidInput("image", "is required"), http.StatusBadRequest, "Invalid release - invalid input: image: is required"},
		{"storage", &models.PublishFailedError{Reason: models.ReasonStorage}, http.StatusServiceUnavailable, "Error uploading to content storage, please try again."},
		{"reverted", &models.PublishFailedError{Reason: models.ReasonTransactionReverted, Revert: "Sold out"}, http.StatusBadGateway, "Transaction Error - Sold out"},
		{"busy", &models.PublishFailedError{Reason: models.ReasonTransactionRejected, Err: session.ErrBusy}, http.StatusConflict, "Transaction was rejected."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, &fakeReleases{publishErr: tt.err}, notify.NewHub(0))

			body, contentType := publishForm(t)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/releases", body)
			req.Header.Set("Content-Type", contentType)
			req.Header.Set("Authorization", "Bearer "+adminToken)

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)

			var out map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, tt.msg, out["error"])
		})
	}
}

func TestGetRelease(t *testing.T) {
	svc := &fakeReleases{}
	app := newTestApp(t, svc, notify.NewHub(0))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/releases/"+releaseAddr.Hex(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/releases/not-an-address", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	svc.view = &subgraph.ReleaseView{ID: releaseAddr.Hex(), Name: "Track"}
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/releases/"+releaseAddr.Hex(), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view subgraph.ReleaseView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "Track", view.Name)
}

func TestWatchReleaseStream(t *testing.T) {
	svc := &fakeReleases{watch: []*subgraph.ReleaseView{nil, {ID: releaseAddr.Hex(), Symbol: "TRK"}}}
	app := newTestApp(t, svc, notify.NewHub(0))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/releases/"+releaseAddr.Hex()+"/watch", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	events := strings.Split(strings.TrimSpace(string(raw)), "\n\n")
	require.Len(t, events, 2)
	assert.True(t, strings.HasPrefix(events[0], "event: pending\n"))
	assert.True(t, strings.HasPrefix(events[1], "event: indexed\n"))
	assert.Contains(t, events[1], `"symbol":"TRK"`)
}

func TestReleaseFunds(t *testing.T) {
	svc := &fakeReleases{}
	app := newTestApp(t, svc, notify.NewHub(0))

	payee := common.HexToAddress("0x0000000000000000000000000000000000000001")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/releases/"+releaseAddr.Hex()+"/release",
		strings.NewReader(`{"payee":"`+payee.Hex()+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tx v1.Transaction
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tx))
	assert.Equal(t, uint64(12), tx.BlockNumber)
	assert.Equal(t, []common.Address{releaseAddr, payee}, svc.released)
}

func TestNotifications(t *testing.T) {
	hub := notify.NewHub(0)
	app := newTestApp(t, &fakeReleases{}, hub)

	id := hub.NotifyLoading("Pending transaction...", notify.Infinite)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil))
	require.NoError(t, err)

	var active []notify.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&active))
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	for range 2 {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/"+id, nil)
		req.Header.Set("Authorization", "Bearer "+adminToken)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.Empty(t, hub.Active())
}

func TestPublishHistory(t *testing.T) {
	app := newTestApp(t, &fakeReleases{}, notify.NewHub(0))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/users/"+releaseAddr.Hex()+"/publishes", nil))
	require.NoError(t, err)

	var list []v1.Publish
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, db.PublishStatusIndexed, list[0].Status)
}

func TestRequestID(t *testing.T) {
	app := newTestApp(t, &fakeReleases{}, notify.NewHub(0))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "trace-1")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "trace-1", resp.Header.Get(requestIDHeader))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"abc":          "abc",
		"Bearer ":      "Bearer",
		"":             "",
	}
	for header, want := range tests {
		assert.Equal(t, want, bearerToken(header), header)
	}
}

func TestGetMetadata(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		err  error
		code int
	}{
		{"found", "ipfs://bafy/metadata.json", nil, http.StatusOK},
		{"missing document", "ipfs://bafy/metadata.json", fmt.Errorf("fetch: %w", contentstore.ErrNotFound), http.StatusNotFound},
		{"foreign locator", "https://example.com/x", models.NewInvalidInput("uri", "not a TON Storage locator"), http.StatusBadRequest},
		{"storage down", "ipfs://bafy/metadata.json", &models.StorageUnavailableError{Err: errors.New("timeout")}, http.StatusServiceUnavailable},
		{"no uri", "", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, &fakeReleases{fetchErr: tt.err}, notify.NewHub(0))

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/metadata?uri="+url.QueryEscape(tt.uri), nil))
			require.NoError(t, err)
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}
