package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tossmail/tossmail-backend/internal/api/response"
	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/render"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/services"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/internal/websocket"
)

// IngestHandler accepts inbound messages posted by an upstream mail
// provider webhook, as an alternative to direct SMTP delivery.
type IngestHandler struct {
	repo   repository.MessageRepository
	store  storage.AttachmentStore
	hub    *websocket.Hub
	stats  *services.Stats
	logger *slog.Logger
}

// NewIngestHandler creates an IngestHandler
func NewIngestHandler(repo repository.MessageRepository, store storage.AttachmentStore, hub *websocket.Hub, stats *services.Stats, logger *slog.Logger) *IngestHandler {
	return &IngestHandler{repo: repo, store: store, hub: hub, stats: stats, logger: logger}
}

// attachmentInfo is the per-file metadata block some providers send
// alongside the multipart files, keyed by form field name.
type attachmentInfo struct {
	Name      string `json:"name"`
	ContentID string `json:"content-id"`
}

// Ingest handles POST /api/ingest. The body is a multipart form in the
// shape mail providers forward: subject, from, to, cc, html or text body,
// file parts for attachments, and an optional attachment-info manifest.
func (h *IngestHandler) Ingest(c echo.Context) error {
	recipient := strings.ToLower(strings.TrimSpace(c.FormValue("to")))
	if recipient == "" {
		return response.BadRequest(c, "Recipient is required")
	}

	body := c.FormValue("html")
	if body == "" {
		body = c.FormValue("text")
	}

	message := &models.Message{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Cc:        strings.ToLower(strings.TrimSpace(c.FormValue("cc"))),
		Sender:    c.FormValue("from"),
		Subject:   c.FormValue("subject"),
		Body:      body,
	}

	contentIDs := parseAttachmentInfo(c.FormValue("attachment-info"))

	var attachments []models.Attachment
	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for field, files := range form.File {
			for _, fh := range files {
				f, err := fh.Open()
				if err != nil {
					h.logger.Warn("failed to open uploaded attachment",
						slog.String("filename", fh.Filename),
						slog.String("error", err.Error()))
					continue
				}
				_, saveErr := h.store.Save(message.ID, fh.Filename, f)
				f.Close()
				if saveErr != nil {
					// Disallowed extensions are dropped, not rejected.
					if !errors.Is(saveErr, storage.ErrExtensionNotAllowed) {
						h.logger.Warn("failed to store attachment",
							slog.String("filename", fh.Filename),
							slog.String("error", saveErr.Error()))
					}
					continue
				}
				attachments = append(attachments, models.Attachment{
					MessageID: message.ID,
					Filename:  fh.Filename,
					ContentID: contentIDs[field],
				})
			}
		}
	}

	if err := h.repo.CreateWithAttachments(c.Request().Context(), message, attachments); err != nil {
		h.logger.Error("failed to store ingested message",
			slog.String("recipient", recipient),
			slog.String("error", err.Error()))
		return response.InternalError(c, "Failed to store message")
	}

	h.stats.IncrementReceived(1)

	senderName, senderEmail := render.SplitSender(message.Sender)
	h.hub.BroadcastNewMessage(recipient, &websocket.NewMessagePayload{
		ID:          message.ID,
		SenderEmail: senderEmail,
		SenderName:  senderName,
		Subject:     message.Subject,
	})

	return response.Created(c, map[string]string{"id": message.ID})
}

// parseAttachmentInfo decodes the provider's attachment manifest. A
// missing or malformed manifest just means no content ids.
func parseAttachmentInfo(raw string) map[string]string {
	ids := make(map[string]string)
	if raw == "" {
		return ids
	}
	var manifest map[string]attachmentInfo
	if err := json.Unmarshal([]byte(raw), &manifest); err != nil {
		return ids
	}
	for field, info := range manifest {
		ids[field] = strings.Trim(info.ContentID, "<>")
	}
	return ids
}
