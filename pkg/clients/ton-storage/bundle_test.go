package tonstorage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/locator"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
)

type fakeDaemon struct {
	createdPath string
	createErr   error
	filesCount  uint64
	removed     []string
}

func (d *fakeDaemon) CreateBag(ctx context.Context, description, path string) (string, error) {
	d.createdPath = path
	if d.createErr != nil {
		return "", d.createErr
	}
	return "ab12", nil
}

func (d *fakeDaemon) BagDetails(ctx context.Context, bagID string) (*BagDetailed, error) {
	return &BagDetailed{BagID: bagID, InfoLoaded: true, MerkleHash: "ff", FilesCount: d.filesCount}, nil
}

func (d *fakeDaemon) RemoveBag(ctx context.Context, bagID string, withFiles bool) error {
	d.removed = append(d.removed, bagID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPayload(t *testing.T) *metadata.Payload {
	t.Helper()

	p, err := metadata.Build(metadata.AssetBundle{
		Artist:      "A",
		Name:        "Track",
		Description: "first single",
		Image:       &metadata.Blob{Name: "../cover.png", ContentType: "image/png", Data: []byte("png")},
		Audio:       &metadata.Blob{Name: "track.mp3", ContentType: "audio/mpeg", Data: []byte("mp3")},
		Licence:     &metadata.Blob{Name: "licence.pdf", ContentType: "application/pdf", Data: []byte("pdf")},
	})
	require.NoError(t, err)

	return p
}

func TestBundleStore_Store(t *testing.T) {
	dir := t.TempDir()
	daemon := &fakeDaemon{filesCount: 4}
	s := NewBundleStore(daemon, dir, locator.NewResolver(), testLogger())

	stored, err := s.Store(context.Background(), testPayload(t))
	require.NoError(t, err)

	assert.Equal(t, "tonstorage://ab12/metadata.json", stored.URL)
	assert.Equal(t, "tonstorage://ab12/files/0-cover.png", stored.Image)
	assert.Equal(t, "tonstorage://ab12/files/1-track.mp3", stored.Audio)
	assert.Equal(t, "tonstorage://ab12/files/2-licence.pdf", stored.Licence)
	assert.NoError(t, metadata.Validate(stored))

	raw, err := os.ReadFile(filepath.Join(daemon.createdPath, metadataFile))
	require.NoError(t, err)

	// canonical form: sorted keys, no insignificant whitespace, relative locators
	assert.Equal(t,
		`{"artist":"A","audio":"files/1-track.mp3","description":"first single","factory_id":"`+metadata.FactoryID+
			`","image":"files/0-cover.png","licence":"files/2-licence.pdf","name":"Track","release_type":"audio"}`,
		string(raw))

	data, err := os.ReadFile(filepath.Join(daemon.createdPath, "files", "1-track.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "mp3", string(data))
}

func TestBundleStore_StoreFailureLeavesNothing(t *testing.T) {
	t.Run("create fails", func(t *testing.T) {
		dir := t.TempDir()
		daemon := &fakeDaemon{createErr: errors.New("daemon down")}
		s := NewBundleStore(daemon, dir, locator.NewResolver(), testLogger())

		stored, err := s.Store(context.Background(), testPayload(t))
		assert.Nil(t, stored)

		var storageErr *models.StorageUnavailableError
		require.True(t, errors.As(err, &storageErr))

		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
		assert.Empty(t, daemon.removed)
	})

	t.Run("incomplete bag", func(t *testing.T) {
		dir := t.TempDir()
		daemon := &fakeDaemon{filesCount: 1}
		s := NewBundleStore(daemon, dir, locator.NewResolver(), testLogger())

		_, err := s.Store(context.Background(), testPayload(t))

		var storageErr *models.StorageUnavailableError
		require.True(t, errors.As(err, &storageErr))
		assert.Equal(t, []string{"ab12"}, daemon.removed)

		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
	})
}

func TestBundleStore_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/gateway/ab12/metadata.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(metadata.Document{
			Artist: "A", Name: "Track", Description: "d",
			Image: "files/0-cover.png", Audio: "ipfs://elsewhere/track.mp3",
			Documents: []string{"files/3-press.txt"},
		})
	}))
	defer srv.Close()

	resolver := locator.NewResolver(locator.Rule{Scheme: locator.TONStorageScheme, Gateway: srv.URL + "/gateway/"})
	s := NewBundleStore(&fakeDaemon{}, t.TempDir(), resolver, testLogger())

	stored, err := s.Fetch(context.Background(), "tonstorage://ab12/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, "tonstorage://ab12/files/0-cover.png", stored.Image)
	assert.Equal(t, "ipfs://elsewhere/track.mp3", stored.Audio)
	assert.Equal(t, []string{"tonstorage://ab12/files/3-press.txt"}, stored.Documents)

	_, err = s.Fetch(context.Background(), "tonstorage://missing/metadata.json")
	assert.ErrorIs(t, err, contentstore.ErrNotFound)

	_, err = s.Fetch(context.Background(), "ipfs://cid")
	var inputErr *models.InvalidInputError
	assert.True(t, errors.As(err, &inputErr))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"cover.png", "cover.png", false},
		{"../../etc/passwd", "passwd", false},
		{`dir\track.mp3`, "track.mp3", false},
		{"..", "", true},
		{"", "", true},
		{"a\x00b", "", true},
	}

	for _, tt := range tests {
		got, err := sanitizeName(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
