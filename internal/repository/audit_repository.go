package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tossmail/tossmail-backend/internal/models"
	"gorm.io/gorm"
)

// AuditRepository defines the interface for audit entry data access
type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditEntry) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// auditRepository implements AuditRepository using GORM
type auditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository instance
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

// Create persists an audit entry
func (r *auditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create audit entry: %w", err)
	}
	return nil
}

// DeleteOlderThan purges audit entries created before cutoff
func (r *auditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge audit entries: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
