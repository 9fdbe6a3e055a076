package httpServer

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	maxRequestIDLen = 64
)

// adminAuthMiddleware accepts bearer tokens whose md5 hex digest is configured.
func (h *handler) adminAuthMiddleware(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		return errorHandler(c, fiber.NewError(fiber.StatusUnauthorized, "unauthorized"))
	}

	hash := md5.Sum([]byte(token))
	if _, exists := h.adminAuthTokens[hex.EncodeToString(hash[:])]; !exists {
		return errorHandler(c, fiber.NewError(fiber.StatusForbidden, "forbidden"))
	}

	return c.Next()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = header[7:]
	}

	return strings.TrimSpace(header)
}

func (h *handler) requestIDMiddleware(c *fiber.Ctx) error {
	id := c.Get(requestIDHeader)
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}

	c.Locals(requestIDKey, id)
	c.Set(requestIDHeader, id)

	return c.Next()
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

func (h *handler) loggerMiddleware(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	headers := c.GetReqHeaders()
	for _, name := range []string{fiber.HeaderAuthorization, fiber.HeaderCookie} {
		if _, ok := headers[name]; ok {
			headers[name] = []string{"REDACTED"}
		}
	}

	h.logger.Debug(
		"request handled",
		slog.String("request_id", requestID(c)),
		slog.String("method", c.Method()),
		slog.String("url", c.OriginalURL()),
		slog.Int("status", c.Response().StatusCode()),
		slog.Duration("duration", time.Since(start)),
		slog.Any("headers", headers),
		slog.Int("body_length", len(c.Body())),
	)

	return err
}
