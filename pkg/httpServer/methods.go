package httpServer

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"

	v1 "mymediarelease-backend/pkg/models/api/v1"
	"mymediarelease-backend/pkg/notify"
)

func (h *handler) publishRelease(c *fiber.Ctx) error {
	log := h.logger.With(
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.String("request_id", requestID(c)),
	)

	mp, err := c.MultipartForm()
	if err != nil {
		log.Error("failed to get multipart form", slog.Any("error", err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid multipart form")
	}

	bundle, params, err := parseRelease(mp)
	if err != nil {
		log.Error("failed to parse release form", slog.Any("error", err))
		return errorHandler(c, err)
	}

	res, err := h.releases.Publish(c.Context(), h.session, bundle, params)
	if err != nil {
		return errorHandler(c, err)
	}

	return c.JSON(v1.PublishResponse{
		ID:             res.ID,
		Address:        res.Address.Hex(),
		TxHash:         res.TxHash.Hex(),
		MetadataURL:    res.Metadata.URL,
		Metadata:       res.Metadata,
		NotificationID: res.NotificationID,
	})
}

func (h *handler) getRelease(c *fiber.Ctx) error {
	view, err := h.releases.GetRelease(c.Context(), c.Params("id"))
	if err != nil {
		return errorHandler(c, err)
	}

	if view == nil {
		return fiber.NewError(fiber.StatusNotFound, "release is not indexed yet")
	}

	return c.JSON(view)
}

// watchRelease streams watch ticks as server-sent events until the release is
// indexed, the client goes away or the watch times out.
func (h *handler) watchRelease(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := validateAddress(id); !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid release address")
	}

	log := h.logger.With(
		slog.String("method", "watchRelease"),
		slog.String("id", id),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), h.watchTimeout)
		defer cancel()

		for view, err := range h.releases.WatchRelease(ctx, id) {
			event := v1.WatchEvent{
				Indexed: view != nil,
				Release: view,
			}
			name := "pending"
			switch {
			case err != nil:
				name = "error"
				event.Error = err.Error()
			case view != nil:
				name = "indexed"
			}

			if wErr := writeEvent(w, name, event); wErr != nil {
				log.Debug("watch stream closed", slog.String("error", wErr.Error()))
				return
			}
		}
	}))

	return nil
}

func (h *handler) releaseFunds(c *fiber.Ctx) error {
	log := h.logger.With(
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.String("request_id", requestID(c)),
	)

	contract, ok := validateAddress(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid release address")
	}

	var req v1.ReleaseFundsRequest
	if err := c.BodyParser(&req); err != nil {
		log.Error("failed to parse request", slog.Any("error", err))
		return fiber.NewError(fiber.StatusBadRequest, "invalid request")
	}

	payee, ok := validateAddress(req.Payee)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payee address")
	}

	receipt, err := h.releases.ReleaseFunds(c.Context(), h.session, contract, payee)
	if err != nil {
		return errorHandler(c, err)
	}

	resp := v1.Transaction{
		TxHash:  receipt.TxHash.Hex(),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		resp.BlockNumber = receipt.BlockNumber.Uint64()
	}

	return c.JSON(resp)
}

func (h *handler) creatorReleases(c *fiber.Ctx) error {
	views, err := h.releases.CreatorReleases(c.Context(), c.Params("address"))
	if err != nil {
		return errorHandler(c, err)
	}

	return c.JSON(views)
}

func (h *handler) publishHistory(c *fiber.Ctx) error {
	list, err := h.releases.PublishHistory(c.Context(), c.Params("address"))
	if err != nil {
		return errorHandler(c, err)
	}

	resp := make([]v1.Publish, 0, len(list))
	for _, p := range list {
		resp = append(resp, toPublish(p))
	}

	return c.JSON(resp)
}

func (h *handler) getPublish(c *fiber.Ctx) error {
	p, err := h.releases.GetPublish(c.Context(), c.Params("id"))
	if err != nil {
		return errorHandler(c, err)
	}

	if p == nil {
		return fiber.NewError(fiber.StatusNotFound, "publish not found")
	}

	return c.JSON(toPublish(*p))
}

func (h *handler) getMetadata(c *fiber.Ctx) error {
	uri := c.Query("uri")
	if uri == "" {
		return fiber.NewError(fiber.StatusBadRequest, "uri is required")
	}

	stored, err := h.releases.GetMetadata(c.Context(), uri)
	if err != nil {
		return errorHandler(c, err)
	}

	return c.JSON(stored)
}

func (h *handler) listNotifications(c *fiber.Ctx) error {
	return c.JSON(h.notifications.Active())
}

func (h *handler) dismissNotification(c *fiber.Ctx) error {
	h.notifications.Dismiss(c.Params("id"))

	return okHandler(c)
}

// streamNotifications forwards hub events as server-sent events. Events are
// dropped for a client that cannot keep up.
func (h *handler) streamNotifications(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		events := make(chan notify.Event, 64)
		active, unsubscribe := h.notifications.SubscribeWithSnapshot(notify.ObserverFunc(func(e notify.Event) {
			select {
			case events <- e:
			default:
			}
		}))
		defer unsubscribe()

		for _, n := range active {
			if err := writeEvent(w, string(notify.EventEmitted), notify.Event{Type: notify.EventEmitted, Notification: n}); err != nil {
				return
			}
		}

		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()

		timeout := time.NewTimer(h.watchTimeout)
		defer timeout.Stop()

		for {
			select {
			case e := <-events:
				if err := writeEvent(w, string(e.Type), e); err != nil {
					return
				}
			case <-keepAlive.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			case <-timeout.C:
				return
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}

	return w.Flush()
}

func (h *handler) health(c *fiber.Ctx) error {
	return okHandler(c)
}

func (h *handler) metrics(c *fiber.Ctx) error {
	m := promhttp.Handler()

	return adaptor.HTTPHandler(m)(c)
}
