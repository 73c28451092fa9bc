package smtp

import (
	"log/slog"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/internal/websocket"
)

// Security limits
const (
	DefaultMaxMessageSize = 25 * 1024 * 1024 // 25 MB
	DefaultMaxRecipients  = 100
	DefaultReadTimeout    = 60 * time.Second
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxLineLength  = 2000
)

// Backend implements the go-smtp Backend interface. It stores inbound
// messages through the persisted-message repository; the live-mailbox
// backend never runs a local SMTP listener.
type Backend struct {
	messageRepo repository.MessageRepository
	store       storage.AttachmentStore
	hub         *websocket.Hub
	domain      string
	logger      *slog.Logger
}

// BackendConfig holds configuration for the SMTP backend
type BackendConfig struct {
	MessageRepo repository.MessageRepository
	Store       storage.AttachmentStore
	Hub         *websocket.Hub
	Domain      string
	Logger      *slog.Logger
}

// NewBackend creates a new SMTP backend
func NewBackend(cfg *BackendConfig) *Backend {
	return &Backend{
		messageRepo: cfg.MessageRepo,
		store:       cfg.Store,
		hub:         cfg.Hub,
		domain:      cfg.Domain,
		logger:      cfg.Logger,
	}
}

// NewSession creates a new SMTP session
func (b *Backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	if b.logger != nil {
		b.logger.Info("new SMTP connection", slog.String("remote_addr", c.Conn().RemoteAddr().String()))
	}
	return NewSession(b), nil
}

// NewServer creates the inbound SMTP server with hardened limits
func NewServer(backend *Backend, addr string) *smtp.Server {
	s := smtp.NewServer(backend)

	s.Addr = addr
	s.Domain = backend.domain
	s.MaxMessageBytes = DefaultMaxMessageSize
	s.MaxRecipients = DefaultMaxRecipients
	s.ReadTimeout = DefaultReadTimeout
	s.WriteTimeout = DefaultWriteTimeout
	s.MaxLineLength = DefaultMaxLineLength

	return s
}
