package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/internal/websocket"
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend) *Session {
	return &Session{
		backend:    backend,
		recipients: make([]string, 0),
	}
}

// AuthPlain handles PLAIN authentication (not required for receiving)
func (s *Session) AuthPlain(username, password string) error {
	return nil
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt handles the RCPT TO command. Only addresses under the configured
// mailbox domain are accepted; mailboxes themselves are provisioned on
// demand, so no per-address lookup happens here.
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	_, domainName, err := parseEmailAddress(to)
	if err != nil {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Invalid recipient address",
		}
	}

	if !strings.EqualFold(domainName, s.backend.domain) {
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 1, 1},
			Message:      "Relay not permitted",
		}
	}

	s.recipients = append(s.recipients, to)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", to))
	}
	return nil
}

// Data handles the DATA command - receives the email content
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return &smtp.SMTPError{
			Code:         503,
			EnhancedCode: smtp.EnhancedCode{5, 5, 1},
			Message:      "No recipients specified",
		}
	}

	parsed, err := ParseEmail(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 6, 0},
			Message:      "Failed to parse email",
		}
	}

	if parsed.From == "" {
		parsed.From = s.from
	}

	ctx := context.Background()
	for _, recipient := range s.recipients {
		if err := s.storeEmail(ctx, recipient, parsed); err != nil {
			if s.backend.logger != nil {
				s.backend.logger.Error("failed to store email",
					slog.String("recipient", recipient),
					slog.Any("error", err))
			}
			// Continue processing other recipients
		}
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", s.from),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsed.Subject))
	}

	return nil
}

// storeEmail persists the email for a single recipient: attachment files
// first (allow-list enforced, rejected files dropped silently), then the
// message row with its manifest.
func (s *Session) storeEmail(ctx context.Context, recipient string, email *ParsedEmail) error {
	message := &models.Message{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Cc:        email.Cc,
		Sender:    email.From,
		Subject:   email.Subject,
		Body:      email.Body(),
	}

	var manifest []models.Attachment
	for _, att := range email.Attachments {
		if _, err := s.backend.store.Save(message.ID, att.Filename, att.Content); err != nil {
			if errors.Is(err, storage.ErrExtensionNotAllowed) {
				continue
			}
			if s.backend.logger != nil {
				s.backend.logger.Error("failed to save attachment",
					slog.String("filename", att.Filename),
					slog.Any("error", err))
			}
			continue
		}
		manifest = append(manifest, models.Attachment{
			ContentID: att.ContentID,
			Filename:  att.Filename,
		})
	}

	if err := s.backend.messageRepo.CreateWithAttachments(ctx, message, manifest); err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	if s.backend.hub != nil {
		name, addr := splitSender(message.Sender)
		s.backend.hub.BroadcastNewMessage(normalizeAddress(recipient), &websocket.NewMessagePayload{
			ID:          message.ID,
			SenderEmail: addr,
			SenderName:  name,
			Subject:     message.Subject,
		})
	}

	return nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// parseEmailAddress parses an email address into local part and domain
func parseEmailAddress(address string) (localPart, domain string, err error) {
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	address = strings.TrimSpace(address)

	parts := strings.Split(address, "@")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	localPart = strings.ToLower(parts[0])
	domain = strings.ToLower(parts[1])

	if localPart == "" || domain == "" {
		return "", "", fmt.Errorf("invalid email address: %s", address)
	}

	return localPart, domain, nil
}

func normalizeAddress(address string) string {
	address = strings.TrimPrefix(address, "<")
	address = strings.TrimSuffix(address, ">")
	return strings.ToLower(strings.TrimSpace(address))
}

// splitSender splits a From header at the first <...> pair
func splitSender(sender string) (name, email string) {
	name = strings.TrimSpace(sender)
	email = name
	if start := strings.Index(sender, "<"); start >= 0 {
		name = strings.TrimSpace(strings.Trim(sender[:start], `" `))
		rest := sender[start+1:]
		if end := strings.Index(rest, ">"); end >= 0 {
			email = strings.TrimSpace(rest[:end])
		}
		if name == "" {
			name = email
		}
	}
	return name, email
}
