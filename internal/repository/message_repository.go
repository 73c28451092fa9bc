package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tossmail/tossmail-backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message data access. Two
// implementations exist: a persisted store backed by the database and a
// live IMAP mailbox; the active one is selected at construction time.
type MessageRepository interface {
	// CreateWithAttachments persists a message and its attachment manifest.
	CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error

	// ListForAddress returns messages addressed to the given mailbox,
	// matching the recipient exactly or as an envelope-style "<addr>"
	// substring. At most limit messages are returned when limit > 0.
	ListForAddress(ctx context.Context, address string, limit int) ([]models.Message, error)

	// ListForCopyRecipient returns messages carbon-copied to the address.
	ListForCopyRecipient(ctx context.Context, address string, limit int) ([]models.Message, error)

	// MarkSeen flips the seen flag of a message. The flag is monotonic;
	// marking an already-seen message is a no-op.
	MarkSeen(ctx context.Context, id string) error

	// Delete removes a message. Deleting an id that no longer exists is a
	// no-op, not an error.
	Delete(ctx context.Context, id string) error

	// DeleteOlderThan removes messages created before cutoff, at most
	// limit of them when limit > 0. It returns the number deleted and,
	// where the backend can enumerate them, the ids of the deleted
	// messages so callers can clean up per-message attachment state.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, []string, error)
}

// gormMessageRepository implements MessageRepository on the persisted store
type gormMessageRepository struct {
	db         *gorm.DB
	fetchLimit int
}

// NewMessageRepository creates the database-backed MessageRepository.
// fetchLimit bounds list queries when the caller passes no limit.
func NewMessageRepository(db *gorm.DB, fetchLimit int) MessageRepository {
	if fetchLimit <= 0 {
		fetchLimit = 25
	}
	return &gormMessageRepository{db: db, fetchLimit: fetchLimit}
}

// CreateWithAttachments creates a message with its manifest in a transaction
func (r *gormMessageRepository) CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}

		for i := range attachments {
			attachments[i].MessageID = message.ID
			if err := tx.Create(&attachments[i]).Error; err != nil {
				return fmt.Errorf("failed to create attachment: %w", err)
			}
		}

		return nil
	})
}

// ListForAddress retrieves messages addressed to the mailbox, oldest first
func (r *gormMessageRepository) ListForAddress(ctx context.Context, address string, limit int) ([]models.Message, error) {
	return r.list(ctx, "recipient", address, limit)
}

// ListForCopyRecipient retrieves messages carbon-copied to the mailbox
func (r *gormMessageRepository) ListForCopyRecipient(ctx context.Context, address string, limit int) ([]models.Message, error) {
	return r.list(ctx, "cc", address, limit)
}

func (r *gormMessageRepository) list(ctx context.Context, column, address string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = r.fetchLimit
	}

	var messages []models.Message
	// Multi-recipient headers are stored raw, so match either the bare
	// address or its enveloped "<addr>" form.
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where(column+" = ? OR "+column+" LIKE ?", address, "%<"+address+">%").
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

// MarkSeen marks a message as seen
func (r *gormMessageRepository) MarkSeen(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id).Update("seen", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message as seen: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete deletes a message by id (cascade deletes the attachment manifest).
// Missing ids are a no-op so that a user delete racing the sweeper cannot
// fail either side.
func (r *gormMessageRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Message{ID: id}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// DeleteOlderThan deletes messages created before cutoff and returns their ids
func (r *gormMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, []string, error) {
	var ids []string

	query := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return 0, nil, fmt.Errorf("failed to find expired messages: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil, nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN ?", ids).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Message{}).Error
	})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to delete expired messages: %w", err)
	}

	return len(ids), ids, nil
}
