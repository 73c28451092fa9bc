package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/storage"
)

// auditRetention is how long audit entries are kept, independent of the
// message retention policy.
const auditRetention = 7 * 24 * time.Hour

// SweepSummary reports what one sweep invocation removed
type SweepSummary struct {
	MessagesDeleted    int `json:"messages_deleted"`
	AuditEntriesPurged int `json:"audit_entries_purged"`
}

// String renders the human-readable trigger response
func (s SweepSummary) String() string {
	return fmt.Sprintf("Deleted %d Messages", s.MessagesDeleted)
}

// RetentionSweeper deletes messages older than the configured retention
// policy along with their on-disk attachments, and purges aged audit
// entries. The live-mailbox backend is swept in capped batches, one
// connection lifetime per invocation.
type RetentionSweeper struct {
	cfg      *config.Config
	messages repository.MessageRepository
	audits   repository.AuditRepository
	store    storage.AttachmentStore
	logger   *slog.Logger
	now      func() time.Time
}

// NewRetentionSweeper creates a RetentionSweeper
func NewRetentionSweeper(cfg *config.Config, messages repository.MessageRepository, audits repository.AuditRepository, store storage.AttachmentStore, logger *slog.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		cfg:      cfg,
		messages: messages,
		audits:   audits,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep runs one retention pass. An I/O error aborts the invocation but
// deletions already issued stand; there is no rollback across the message
// delete and the directory delete.
func (s *RetentionSweeper) Sweep(ctx context.Context) (SweepSummary, error) {
	summary := SweepSummary{}
	cutoff := s.cfg.RetentionCutoff(s.now())

	limit := 0
	if s.cfg.MessageSource == config.SourceIMAP {
		limit = s.cfg.SweepBatchLimit
	}

	count, ids, err := s.messages.DeleteOlderThan(ctx, cutoff, limit)
	summary.MessagesDeleted = count
	if err != nil {
		return summary, fmt.Errorf("delete expired messages: %w", err)
	}

	if ids != nil {
		for _, id := range ids {
			if err := s.store.DeleteMessage(id); err != nil {
				return summary, fmt.Errorf("delete attachments for %s: %w", id, err)
			}
		}
	} else if count > 0 {
		// The live backend cannot map expunged messages back to local
		// directories, so the whole attachments root goes.
		if err := s.store.DeleteAll(); err != nil {
			return summary, fmt.Errorf("delete attachments root: %w", err)
		}
	}

	purged, err := s.audits.DeleteOlderThan(ctx, s.now().Add(-auditRetention))
	summary.AuditEntriesPurged = purged
	if err != nil {
		return summary, fmt.Errorf("purge audit entries: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("retention sweep completed",
			slog.Time("cutoff", cutoff),
			slog.Int("messages_deleted", summary.MessagesDeleted),
			slog.Int("audit_entries_purged", summary.AuditEntriesPurged))
	}

	return summary, nil
}
