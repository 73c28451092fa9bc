// Package api wires the HTTP surface: routes, middleware and handlers.
package api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/handlers"
	"github.com/tossmail/tossmail-backend/internal/api/middleware"
	"github.com/tossmail/tossmail-backend/internal/config"
)

// Handlers bundles the route handlers the router mounts
type Handlers struct {
	Health     *handlers.HealthHandler
	Poll       *handlers.PollHandler
	Ingest     *handlers.IngestHandler
	Message    *handlers.MessageHandler
	Sweep      *handlers.SweepHandler
	Mailbox    *handlers.MailboxHandler
	Attachment *handlers.AttachmentHandler
	WS         *handlers.WSHandler
}

// NewRouter builds the echo instance with all middleware and routes
func NewRouter(cfg *config.Config, h *Handlers, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	origins := splitOrigins(cfg.AllowedOrigins)

	e.Use(middleware.Recover())
	e.Use(middleware.SecureHeaders())
	e.Use(middleware.SecureCORS(origins, cfg.AppEnv, logger))
	e.Use(middleware.RateLimiter(cfg.RateLimitRequests, cfg.RateLimitBurst, logger))
	e.Use(middleware.RequestLogger(logger))

	// Probes
	e.GET("/health", h.Health.Health)
	e.GET("/ready", h.Health.Ready)

	// Push channel
	e.GET("/ws", h.WS.Connect)

	// Attachment downloads keep the path shape attachment URLs are built
	// with, so stored messages stay resolvable.
	e.GET("/tmp/attachments/:message_id/:filename", h.Attachment.Download)

	api := e.Group("/api")
	api.POST("/poll", h.Poll.Poll)
	api.POST("/ingest", h.Ingest.Ingest)
	api.DELETE("/messages/:id", h.Message.Delete)

	// Retention trigger for external cron, GET kept for curl-ability
	api.GET("/sweep/:secret", h.Sweep.Trigger)
	api.POST("/sweep/:secret", h.Sweep.Trigger)

	api.GET("/mailbox", h.Mailbox.Current)
	api.POST("/mailbox", h.Mailbox.Create)
	api.POST("/mailbox/random", h.Mailbox.Random)
	api.POST("/mailbox/switch", h.Mailbox.Switch)
	api.GET("/mailbox/owned", h.Mailbox.List)
	api.DELETE("/mailbox/:address", h.Mailbox.Delete)

	return e
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
