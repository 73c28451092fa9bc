package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tossmail/tossmail-backend/internal/services"
)

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db    *gorm.DB
	stats *services.Stats
}

// NewHealthHandler creates a HealthHandler. db may be nil when the message
// source is a live mailbox and no database is configured.
func NewHealthHandler(db *gorm.DB, stats *services.Stats) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"received_messages": h.stats.ReceivedMessages(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "database unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}
