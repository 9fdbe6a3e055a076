// !ONLY FOR DEBUG PURPOSES
//
//go:build debug

package httpServer

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const (
	MaxRequests     = 300
	RateLimitWindow = 60 * time.Second
)

// debugOrigin is the local frontend dev server.
const debugOrigin = "http://localhost:3000"

func (h *handler) RegisterRoutes() {
	h.logger.Info("Registering debug routes", "cors_origin", debugOrigin)

	// In production a reverse proxy answers CORS preflights.
	h.server.Use(cors.New(cors.Config{
		AllowOrigins: debugOrigin,
		AllowMethods: strings.Join([]string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodDelete,
			fiber.MethodOptions,
		}, ","),
		ExposeHeaders: requestIDHeader,
	}))

	h.registerAPI()
}
