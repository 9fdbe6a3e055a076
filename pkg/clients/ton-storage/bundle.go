package tonstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/locator"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
)

const (
	metadataFile  = "metadata.json"
	filesDir      = "files"
	maxNameLength = 128
)

type bundleStore struct {
	storage    Client
	stagingDir string
	resolver   *locator.Resolver
	client     http.Client
	logger     *slog.Logger
}

// Store stages the payload files and a canonical metadata.json in a fresh
// directory and publishes the directory as one bag. On any failure the staging
// directory and the bag are removed.
func (s *bundleStore) Store(ctx context.Context, payload *metadata.Payload) (stored *metadata.Stored, err error) {
	if payload == nil {
		return nil, models.NewInvalidInput("payload", "is empty")
	}

	log := s.logger.With(
		slog.String("method", "Store"),
		slog.String("name", payload.Name),
	)

	id, uErr := uuid.NewV6()
	if uErr != nil {
		return nil, fmt.Errorf("failed to generate UUID: %w", uErr)
	}

	dstPath := filepath.Join(s.stagingDir, id.String())
	if mErr := os.MkdirAll(filepath.Join(dstPath, filesDir), 0755); mErr != nil {
		log.Error("Failed to create directory", slog.Any("error", mErr))
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to create directory %s: %w", dstPath, mErr)}
	}

	var bagID string
	defer func() {
		if err == nil {
			return
		}

		if bagID != "" {
			if rmErr := s.storage.RemoveBag(context.WithoutCancel(ctx), bagID, false); rmErr != nil {
				log.Error("Failed to remove bag after error", slog.String("bag_id", bagID), slog.Any("error", rmErr))
			}
		}

		if rmErr := os.RemoveAll(dstPath); rmErr != nil {
			log.Error("Failed to remove directory after error", slog.Any("error", rmErr))
		}
	}()

	files := payload.Files()
	paths := make(map[string]string, len(files))
	for i, f := range files {
		name, nErr := sanitizeName(f.Blob.Name)
		if nErr != nil {
			return nil, models.NewInvalidInput(f.Field, nErr.Error())
		}

		rel := path.Join(filesDir, strconv.Itoa(i)+"-"+name)
		if wErr := os.WriteFile(filepath.Join(dstPath, filepath.FromSlash(rel)), f.Blob.Data, 0644); wErr != nil {
			log.Error("Failed to save file to disk", slog.Any("error", wErr))
			return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to save file %s: %w", rel, wErr)}
		}
		paths[f.Field] = rel
	}

	doc := payload.Document(func(f metadata.File) string { return paths[f.Field] })

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	// bag ids are content hashes, so the document bytes must be deterministic
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize metadata: %w", err)
	}

	if wErr := os.WriteFile(filepath.Join(dstPath, metadataFile), canonical, 0644); wErr != nil {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to save metadata: %w", wErr)}
	}

	bagID, err = s.storage.CreateBag(ctx, payload.Artist+" - "+payload.Name, dstPath)
	if err != nil {
		log.Error("Failed to create bag in storage", slog.Any("error", err))
		bagID = ""
		return nil, &models.StorageUnavailableError{Err: err}
	}

	bag, err := s.storage.BagDetails(ctx, bagID)
	if err != nil {
		log.Error("Failed to get bag info", slog.String("bag_id", bagID), slog.Any("error", err))
		return nil, &models.StorageUnavailableError{Err: err}
	}

	if bag.InfoLoaded && len(bag.Files) > 0 && !bag.HasFile(metadataFile) {
		err = &models.StorageUnavailableError{Err: fmt.Errorf("bag %s has no %s", bagID, metadataFile)}
		return nil, err
	}

	if bag.InfoLoaded && bag.FilesCount != uint64(len(files)+1) {
		err = &models.StorageUnavailableError{
			Err: fmt.Errorf("bag %s has %d files, expected %d", bagID, bag.FilesCount, len(files)+1),
		}
		return nil, err
	}

	log.Info("Bundle stored", slog.String("bag_id", bagID), slog.Uint64("size", bag.Size))

	return &metadata.Stored{
		URL:      locator.TONStorageScheme + bagID + "/" + metadataFile,
		Document: absolutize(doc, bagID),
	}, nil
}

// Fetch downloads metadata.json of a bag through the gateway.
func (s *bundleStore) Fetch(ctx context.Context, uri string) (*metadata.Stored, error) {
	bagID, ok := bagFromLocator(uri)
	if !ok {
		return nil, models.NewInvalidInput("uri", "not a TON Storage locator")
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodGet, s.resolver.Resolve(uri), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	res, err := s.client.Do(r)
	if err != nil {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("failed to make request: %w", err)}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, contentstore.ErrNotFound
	}
	if res.StatusCode != http.StatusOK {
		return nil, &models.StorageUnavailableError{Err: fmt.Errorf("status code is %d", res.StatusCode)}
	}

	var doc metadata.Document
	if err = json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	return &metadata.Stored{URL: uri, Document: absolutize(doc, bagID)}, nil
}

func absolutize(doc metadata.Document, bagID string) metadata.Document {
	abs := func(loc string) string {
		if loc == "" || strings.Contains(loc, "://") {
			return loc
		}
		return locator.TONStorageScheme + bagID + "/" + loc
	}

	doc.Image = abs(doc.Image)
	doc.Audio = abs(doc.Audio)
	doc.Licence = abs(doc.Licence)
	if len(doc.Documents) > 0 {
		docs := make([]string, 0, len(doc.Documents))
		for _, d := range doc.Documents {
			docs = append(docs, abs(d))
		}
		doc.Documents = docs
	}

	return doc
}

func bagFromLocator(uri string) (string, bool) {
	rest, ok := strings.CutPrefix(uri, locator.TONStorageScheme)
	if !ok {
		return "", false
	}

	bagID, _, _ := strings.Cut(rest, "/")
	return bagID, bagID != ""
}

func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if strings.ContainsRune(name, '\x00') {
		return "", errors.New("invalid file name")
	}

	cleaned := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if cleaned == "/" || cleaned == "." || cleaned == ".." {
		return "", errors.New("invalid file name")
	}

	if len(cleaned) > maxNameLength {
		return "", errors.New("file name too long")
	}

	return cleaned, nil
}

func NewBundleStore(storage Client, stagingDir string, resolver *locator.Resolver, logger *slog.Logger) contentstore.Client {
	return &bundleStore{
		storage:    storage,
		stagingDir: stagingDir,
		resolver:   resolver,
		client: http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}
