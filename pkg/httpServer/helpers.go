package httpServer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"

	"mymediarelease-backend/pkg/contentstore"
	"mymediarelease-backend/pkg/metadata"
	"mymediarelease-backend/pkg/models"
	v1 "mymediarelease-backend/pkg/models/api/v1"
	"mymediarelease-backend/pkg/models/db"
	releasesService "mymediarelease-backend/pkg/services/releases"
	"mymediarelease-backend/pkg/session"
)

func (h *handler) limitReached(c *fiber.Ctx) error {
	log := h.logger.With(
		slog.String("method", "limitReached"),
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.Any("headers", c.GetReqHeaders()),
	)

	log.Warn("rate limit reached for request")
	return fiber.NewError(fiber.StatusTooManyRequests, "too many requests, please try again later")
}

func validateAddress(addr string) (common.Address, bool) {
	if !common.IsHexAddress(addr) {
		return common.Address{}, false
	}
	return common.HexToAddress(addr), true
}

// parseRelease reads the publish form: text fields, JSON encoded attributes
// and stakeholders, and the image, audio, licence and documents files.
func parseRelease(form *multipart.Form) (metadata.AssetBundle, releasesService.ContractParams, error) {
	var (
		bundle metadata.AssetBundle
		params releasesService.ContractParams
	)

	bundle.Artist = formValue(form, "artist")
	bundle.Name = formValue(form, "name")
	bundle.Description = formValue(form, "description")

	if raw := formValue(form, "attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &bundle.Attributes); err != nil {
			return bundle, params, models.NewInvalidInput("attributes", "must be a JSON array")
		}
	}

	var err error
	if bundle.Image, err = formBlob(form, "image"); err != nil {
		return bundle, params, err
	}
	if bundle.Audio, err = formBlob(form, "audio"); err != nil {
		return bundle, params, err
	}
	if bundle.Licence, err = formBlob(form, "licence"); err != nil {
		return bundle, params, err
	}

	for _, fh := range form.File["documents"] {
		blob, rErr := readBlob(fh)
		if rErr != nil {
			return bundle, params, rErr
		}
		bundle.Documents = append(bundle.Documents, *blob)
	}

	params.Symbol = formValue(form, "symbol")
	params.SalePrice = formValue(form, "sale_price")
	params.RoyaltyPercentage = formValue(form, "royalty")

	if q := formValue(form, "quantity"); q != "" {
		params.Quantity, err = strconv.ParseUint(q, 10, 64)
		if err != nil {
			return bundle, params, models.NewInvalidInput("quantity", "must be a positive integer")
		}
	}

	var stakeholders []v1.StakeholderShare
	if raw := formValue(form, "stakeholders"); raw != "" {
		if err = json.Unmarshal([]byte(raw), &stakeholders); err != nil {
			return bundle, params, models.NewInvalidInput("stakeholders", "must be a JSON array")
		}
	}
	for _, s := range stakeholders {
		params.Stakeholders = append(params.Stakeholders, releasesService.StakeholderShare{
			Address: s.Address,
			Share:   s.Share,
		})
	}

	return bundle, params, nil
}

func formValue(form *multipart.Form, key string) string {
	if v, ok := form.Value[key]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

func formBlob(form *multipart.Form, key string) (*metadata.Blob, error) {
	files := form.File[key]
	if len(files) == 0 {
		return nil, nil
	}
	return readBlob(files[0])
}

func readBlob(fh *multipart.FileHeader) (*metadata.Blob, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fh.Filename, err)
	}

	return &metadata.Blob{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func toPublish(p db.Publish) v1.Publish {
	return v1.Publish{
		ID:              p.ID,
		Creator:         p.Creator,
		Artist:          p.Artist,
		Name:            p.Name,
		Status:          p.Status,
		MetadataURL:     p.MetadataURL,
		TxHash:          p.TxHash,
		ContractAddress: p.ContractAddress,
		FailReason:      p.FailReason,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func okHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}

	if appErr, ok := err.(*models.AppError); ok {
		msg := appErr.Message
		if appErr.Code == fiber.StatusInternalServerError {
			msg = "internal server error"
		}

		return c.Status(appErr.Code).JSON(fiber.Map{
			"error": msg,
		})
	}

	if errors.Is(err, contentstore.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{
			Error: "content not found",
		})
	}

	var inputErr *models.InvalidInputError
	if errors.As(err, &inputErr) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{
			Error: models.UserMessage(err),
		})
	}

	var publishErr *models.PublishFailedError
	if errors.As(err, &publishErr) {
		code := fiber.StatusBadGateway
		switch {
		case errors.Is(err, session.ErrBusy):
			code = fiber.StatusConflict
		case publishErr.Reason == models.ReasonStorage:
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"error":  publishErr.Message(),
			"reason": publishErr.Reason,
		})
	}

	var storageErr *models.StorageUnavailableError
	if errors.As(err, &storageErr) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{
			Error: models.UserMessage(err),
		})
	}

	errorResponse := errorResponse{
		Error: models.UserMessage(err),
	}

	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse)
}
