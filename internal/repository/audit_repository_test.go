package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tossmail/tossmail-backend/internal/models"
)

func setupAuditDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.AuditEntry{}))
	return db
}

func TestAuditRepositoryCreate(t *testing.T) {
	db := setupAuditDB(t)
	repo := NewAuditRepository(db)

	err := repo.Create(context.Background(), &models.AuditEntry{
		ViewerIP:  "203.0.113.9",
		Sender:    "alice@example.org",
		Recipient: "box@tossmail.io",
	})
	assert.NoError(t, err)

	var count int64
	db.Model(&models.AuditEntry{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAuditRepositoryDeleteOlderThan(t *testing.T) {
	db := setupAuditDB(t)
	repo := NewAuditRepository(db)

	now := time.Now()
	require.NoError(t, db.Create(&models.AuditEntry{ViewerIP: "1.1.1.1", CreatedAt: now.Add(-8 * 24 * time.Hour)}).Error)
	require.NoError(t, db.Create(&models.AuditEntry{ViewerIP: "2.2.2.2", CreatedAt: now.Add(-6 * 24 * time.Hour)}).Error)

	purged, err := repo.DeleteOlderThan(context.Background(), now.Add(-7*24*time.Hour))
	assert.NoError(t, err)
	assert.Equal(t, 1, purged)

	var remaining []models.AuditEntry
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "2.2.2.2", remaining[0].ViewerIP)
}
