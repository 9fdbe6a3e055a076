package httpServer

import (
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func (h *handler) registerAPI() {
	m := newMetrics(h.namespace, h.subsystem)

	h.server.Use(h.requestIDMiddleware)
	h.server.Use(m.metricsMiddleware)

	h.server.Use(limiter.New(limiter.Config{
		Max:               MaxRequests,
		Expiration:        RateLimitWindow,
		LimitReached:      h.limitReached,
		LimiterMiddleware: limiter.SlidingWindow{},
	}))

	h.server.Get("/health", h.health)
	h.server.Get("/metrics", h.adminAuthMiddleware, h.metrics)

	apiv1 := h.server.Group("/api/v1", h.loggerMiddleware)
	{
		{
			releases := apiv1.Group("/releases")
			releases.Post("/", h.adminAuthMiddleware, h.publishRelease)
			releases.Get("/:id", h.getRelease)
			releases.Get("/:id/watch", h.watchRelease)
			releases.Post("/:id/release", h.adminAuthMiddleware, h.releaseFunds)
		}

		{
			users := apiv1.Group("/users/:address")
			users.Get("/releases", h.creatorReleases)
			users.Get("/publishes", h.publishHistory)
		}

		apiv1.Get("/publishes/:id", h.getPublish)
		apiv1.Get("/metadata", h.getMetadata)

		{
			notifications := apiv1.Group("/notifications")
			notifications.Get("/", h.listNotifications)
			notifications.Get("/stream", h.streamNotifications)
			notifications.Delete("/:id", h.adminAuthMiddleware, h.dismissNotification)
		}
	}
}
