//go:build !debug

package httpServer

import (
	"time"
)

const (
	MaxRequests     = 30
	RateLimitWindow = 60 * time.Second
)

func (h *handler) RegisterRoutes() {
	h.logger.Info("Registering routes")

	h.registerAPI()
}
