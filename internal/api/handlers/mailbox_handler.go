package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/mailbox"
)

// MailboxHandler serves the session's disposable address directory
type MailboxHandler struct {
	directory *mailbox.Directory
}

// NewMailboxHandler creates a MailboxHandler
func NewMailboxHandler(directory *mailbox.Directory) *MailboxHandler {
	return &MailboxHandler{directory: directory}
}

type mailboxRequest struct {
	Address string `json:"address"`
}

// Current handles GET /api/mailbox
func (h *MailboxHandler) Current(c echo.Context) error {
	address, ok := h.directory.Current(sessionID(c))
	if !ok {
		return response.NotFound(c, "No mailbox selected")
	}
	return response.Success(c, map[string]string{"address": address})
}

// Create handles POST /api/mailbox. Without an address a random one is
// minted; custom addresses are honored only when creation from
// client-supplied addresses is enabled, otherwise the request is
// redirected home instead of failing.
func (h *MailboxHandler) Create(c echo.Context) error {
	var req mailboxRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Address == "" {
		req.Address = c.QueryParam("address")
	}
	if req.Address == "" {
		address := h.directory.Random(sessionID(c))
		return response.Created(c, map[string]string{"address": address})
	}

	if err := h.directory.Create(sessionID(c), req.Address); err != nil {
		if errors.Is(err, mailbox.ErrCreateDisabled) {
			return c.Redirect(http.StatusFound, "/")
		}
		return response.BadRequest(c, err.Error())
	}

	return response.Created(c, map[string]string{"address": req.Address})
}

// Random handles POST /api/mailbox/random
func (h *MailboxHandler) Random(c echo.Context) error {
	address := h.directory.Random(sessionID(c))
	return response.Created(c, map[string]string{"address": address})
}

// Switch handles POST /api/mailbox/switch
func (h *MailboxHandler) Switch(c echo.Context) error {
	var req mailboxRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.directory.Switch(sessionID(c), req.Address); err != nil {
		if errors.Is(err, mailbox.ErrNotOwned) {
			return response.NotFound(c, "Mailbox not found")
		}
		return response.BadRequest(c, err.Error())
	}

	return response.Success(c, map[string]string{"address": req.Address})
}

// List handles GET /api/mailbox/owned
func (h *MailboxHandler) List(c echo.Context) error {
	addresses := h.directory.ListOwned(sessionID(c))
	if addresses == nil {
		addresses = []string{}
	}
	return response.Success(c, map[string][]string{"addresses": addresses})
}

// Delete handles DELETE /api/mailbox/:address
func (h *MailboxHandler) Delete(c echo.Context) error {
	address := c.Param("address")
	if address == "" {
		return response.BadRequest(c, "Address is required")
	}

	h.directory.Delete(sessionID(c), address)
	return response.SuccessWithMessage(c, nil, "Mailbox removed")
}
