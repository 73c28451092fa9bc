// Package mocks provides testify mocks for repository and storage
// interfaces used in handler and service tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/tossmail/tossmail-backend/internal/models"
)

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// CreateWithAttachments stores a message and its attachment manifest
func (m *MockMessageRepository) CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error {
	args := m.Called(ctx, message, attachments)
	return args.Error(0)
}

// ListForAddress lists messages delivered to an address
func (m *MockMessageRepository) ListForAddress(ctx context.Context, address string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// ListForCopyRecipient lists messages carbon-copied to an address
func (m *MockMessageRepository) ListForCopyRecipient(ctx context.Context, address string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, address, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// MarkSeen flips a message's seen flag
func (m *MockMessageRepository) MarkSeen(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Delete removes a message by id
func (m *MockMessageRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// DeleteOlderThan removes messages created before the cutoff
func (m *MockMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, []string, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(1) == nil {
		return args.Int(0), nil, args.Error(2)
	}
	return args.Int(0), args.Get(1).([]string), args.Error(2)
}

// MockAuditRepository implements repository.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

// Create stores an audit entry
func (m *MockAuditRepository) Create(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// DeleteOlderThan purges audit entries created before the cutoff
func (m *MockAuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}
