package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tossmail/tossmail-backend/internal/api"
	"github.com/tossmail/tossmail-backend/internal/api/handlers"
	"github.com/tossmail/tossmail-backend/internal/audit"
	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/database"
	"github.com/tossmail/tossmail-backend/internal/mailbox"
	"github.com/tossmail/tossmail-backend/internal/render"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/services"
	smtpserver "github.com/tossmail/tossmail-backend/internal/smtp"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/internal/websocket"
)

func main() {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("starting tossmail backend")
	cfg.LogConfig(logger)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := storage.NewLocalAttachmentStore(cfg.AttachmentStoragePath)
	if err != nil {
		logger.Error("failed to initialize attachment storage", slog.Any("error", err))
		os.Exit(1)
	}

	var messageRepo repository.MessageRepository
	switch cfg.MessageSource {
	case config.SourceIMAP:
		messageRepo = repository.NewIMAPMessageRepository(repository.IMAPOptions{
			Host:        cfg.IMAPHost,
			Port:        cfg.IMAPPort,
			Username:    cfg.IMAPUsername,
			Password:    cfg.IMAPPassword,
			UseTLS:      cfg.IMAPUseTLS,
			DialTimeout: cfg.IMAPDialTimeout,
			FetchLimit:  cfg.FetchLimit,
		}, logger)
	default:
		messageRepo = repository.NewMessageRepository(db, cfg.FetchLimit)
	}

	auditRepo := repository.NewAuditRepository(db)
	auditLog := audit.NewLogger(cfg.AuditLogEnabled, cfg.AuditLogPath, auditRepo, logger)

	renderer := render.NewRenderer(cfg, messageRepo, store, auditLog)
	pollService := services.NewPollService(cfg, messageRepo, renderer)
	stats := services.NewStats()
	directory := mailbox.NewDirectory(cfg.MailboxDomain, cfg.CreateFromURL)

	sweeper := services.NewRetentionSweeper(cfg, messageRepo, auditRepo, store, logger)
	scheduler := services.NewSweepScheduler(sweeper, cfg.SweepInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	hub := websocket.NewHub(logger)
	go hub.Run()

	origins := strings.Split(cfg.AllowedOrigins, ",")

	h := &api.Handlers{
		Health:     handlers.NewHealthHandler(db, stats),
		Poll:       handlers.NewPollHandler(pollService, stats, directory, cfg.AdminToken, logger),
		Ingest:     handlers.NewIngestHandler(messageRepo, store, hub, stats, logger),
		Message:    handlers.NewMessageHandler(messageRepo, store, logger),
		Sweep:      handlers.NewSweepHandler(sweeper, cfg.SweepSecret, logger),
		Mailbox:    handlers.NewMailboxHandler(directory),
		Attachment: handlers.NewAttachmentHandler(store),
		WS:         handlers.NewWSHandler(hub, origins, logger),
	}

	e := api.NewRouter(cfg, h, logger)

	// Direct SMTP delivery only makes sense when messages land in our own
	// database; the live-mailbox backend receives mail upstream.
	if cfg.MessageSource == config.SourceDatabase {
		backend := smtpserver.NewBackend(&smtpserver.BackendConfig{
			MessageRepo: messageRepo,
			Store:       store,
			Hub:         hub,
			Domain:      cfg.MailboxDomain,
			Logger:      logger,
		})
		server := smtpserver.NewServer(backend, fmt.Sprintf(":%d", cfg.SMTPPort))
		go func() {
			logger.Info("SMTP server listening", slog.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil {
				logger.Error("SMTP server stopped", slog.Any("error", err))
			}
		}()
		defer server.Close()
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		logger.Info("HTTP server listening", slog.String("addr", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server stopped", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
