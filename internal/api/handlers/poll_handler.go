package handlers

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/mailbox"
	"github.com/tossmail/tossmail-backend/internal/services"
)

// pollBackendError is the generic message shown when the message backend
// fails and the caller is not an admin. Backend error detail can leak
// credentials and internal hostnames.
const pollBackendError = "Not able to connect to Mail Server"

// PollHandler serves the polling endpoint
type PollHandler struct {
	poll       *services.PollService
	stats      *services.Stats
	directory  *mailbox.Directory
	adminToken string
	logger     *slog.Logger
}

// NewPollHandler creates a PollHandler
func NewPollHandler(poll *services.PollService, stats *services.Stats, directory *mailbox.Directory, adminToken string, logger *slog.Logger) *PollHandler {
	return &PollHandler{
		poll:       poll,
		stats:      stats,
		directory:  directory,
		adminToken: adminToken,
		logger:     logger,
	}
}

// pollRequest is the poll endpoint's request body. removed_ids, prior_count
// and overflow are state the client carries between polls.
type pollRequest struct {
	Address    string   `json:"address"`
	RemovedIDs []string `json:"removed_ids"`
	PriorCount int      `json:"prior_count"`
	Overflow   bool     `json:"overflow"`
}

// Poll handles POST /api/poll
func (h *PollHandler) Poll(c echo.Context) error {
	var req pollRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	session := sessionID(c)
	if req.Address == "" {
		current, ok := h.directory.Current(session)
		if !ok {
			return response.BadRequest(c, "No mailbox selected")
		}
		req.Address = current
	}

	result, err := h.poll.Poll(c.Request().Context(), services.PollRequest{
		Address:    req.Address,
		RemovedIDs: req.RemovedIDs,
		PriorCount: req.PriorCount,
		Overflow:   req.Overflow,
		ViewerIP:   c.RealIP(),
	})
	if err != nil {
		h.logger.Error("poll failed",
			slog.String("address", req.Address),
			slog.String("error", err.Error()))
		if h.isAdmin(c) {
			return response.BackendUnavailable(c, err.Error())
		}
		return response.BackendUnavailable(c, pollBackendError)
	}

	h.stats.IncrementReceived(len(result.Notifications))

	return response.Success(c, result)
}

// isAdmin reports whether the request carries the admin bearer token
func (h *PollHandler) isAdmin(c echo.Context) bool {
	if h.adminToken == "" {
		return false
	}
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	return strings.TrimPrefix(auth, "Bearer ") == h.adminToken
}
