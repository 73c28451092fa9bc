package mocks

import (
	"io"

	"github.com/stretchr/testify/mock"
)

// MockAttachmentStore implements storage.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

// Save stores an attachment file
func (m *MockAttachmentStore) Save(messageID, filename string, content io.Reader) (int64, error) {
	args := m.Called(messageID, filename, content)
	return args.Get(0).(int64), args.Error(1)
}

// Open opens a stored attachment for reading
func (m *MockAttachmentStore) Open(messageID, filename string) (io.ReadCloser, error) {
	args := m.Called(messageID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Exists reports whether an attachment file is present
func (m *MockAttachmentStore) Exists(messageID, filename string) bool {
	args := m.Called(messageID, filename)
	return args.Bool(0)
}

// DeleteMessage removes a message's attachment directory
func (m *MockAttachmentStore) DeleteMessage(messageID string) error {
	args := m.Called(messageID)
	return args.Error(0)
}

// DeleteAll removes the whole attachments root
func (m *MockAttachmentStore) DeleteAll() error {
	args := m.Called()
	return args.Error(0)
}

// URL builds the public download URL for an attachment
func (m *MockAttachmentStore) URL(baseURL, messageID, filename string) string {
	args := m.Called(baseURL, messageID, filename)
	return args.String(0)
}
