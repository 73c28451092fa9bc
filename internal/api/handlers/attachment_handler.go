package handlers

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/storage"
)

// AttachmentHandler serves stored attachment files
type AttachmentHandler struct {
	store storage.AttachmentStore
}

// NewAttachmentHandler creates an AttachmentHandler
func NewAttachmentHandler(store storage.AttachmentStore) *AttachmentHandler {
	return &AttachmentHandler{store: store}
}

// Download handles GET /tmp/attachments/:message_id/:filename
func (h *AttachmentHandler) Download(c echo.Context) error {
	messageID := c.Param("message_id")
	filename := c.Param("filename")

	f, err := h.store.Open(messageID, filename)
	if err != nil {
		if errors.Is(err, storage.ErrFileNotFound) || errors.Is(err, storage.ErrPathTraversal) {
			return response.NotFound(c, "Attachment not found")
		}
		return response.InternalError(c, "Failed to open attachment")
	}
	defer f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	return c.Stream(http.StatusOK, contentType, f)
}
