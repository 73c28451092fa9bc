package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/storage"
)

// MessageHandler serves per-message operations
type MessageHandler struct {
	repo   repository.MessageRepository
	store  storage.AttachmentStore
	logger *slog.Logger
}

// NewMessageHandler creates a MessageHandler
func NewMessageHandler(repo repository.MessageRepository, store storage.AttachmentStore, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{repo: repo, store: store, logger: logger}
}

// Delete handles DELETE /api/messages/:id. Deleting an already-deleted
// message succeeds; clients retry deletes freely.
func (h *MessageHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return response.BadRequest(c, "Message ID is required")
	}

	if err := h.repo.Delete(c.Request().Context(), id); err != nil {
		h.logger.Error("failed to delete message",
			slog.String("id", id),
			slog.String("error", err.Error()))
		return response.BackendUnavailable(c, "Failed to delete message")
	}

	if err := h.store.DeleteMessage(id); err != nil {
		h.logger.Warn("failed to delete message attachments",
			slog.String("id", id),
			slog.String("error", err.Error()))
	}

	return response.SuccessWithMessage(c, nil, "Message deleted")
}
