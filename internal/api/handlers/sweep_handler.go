package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/services"
)

// SweepHandler exposes the retention sweep as a secret-gated trigger for
// external cron callers.
type SweepHandler struct {
	sweeper *services.RetentionSweeper
	secret  string
	logger  *slog.Logger
}

// NewSweepHandler creates a SweepHandler
func NewSweepHandler(sweeper *services.RetentionSweeper, secret string, logger *slog.Logger) *SweepHandler {
	return &SweepHandler{sweeper: sweeper, secret: secret, logger: logger}
}

// Trigger handles GET and POST /api/sweep/:secret. The secret comparison
// is constant-time and a mismatch is indistinguishable from a disabled
// endpoint.
func (h *SweepHandler) Trigger(c echo.Context) error {
	if h.secret == "" ||
		subtle.ConstantTimeCompare([]byte(c.Param("secret")), []byte(h.secret)) != 1 {
		return response.Unauthorized(c, "Unauthorized")
	}

	summary, err := h.sweeper.Sweep(c.Request().Context())
	if err != nil {
		h.logger.Error("manual sweep failed", slog.String("error", err.Error()))
		return response.InternalError(c, "Sweep failed")
	}

	return c.String(http.StatusOK, summary.String())
}
