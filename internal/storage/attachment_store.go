package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Storage errors
var (
	ErrPathTraversal       = errors.New("path traversal detected")
	ErrFileNotFound        = errors.New("file not found")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
)

// attachmentsDir is the directory under the storage root that holds
// per-message attachment directories.
const attachmentsDir = "attachments"

// allowedExtensions is the attachment extension allow-list. Files with any
// other extension are dropped at ingest, never stored.
var allowedExtensions = map[string]bool{
	".csv": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".xps": true, ".pdf": true, ".dxf": true,
	".ai": true, ".psd": true, ".eps": true, ".ps": true, ".svg": true,
	".ttf": true, ".zip": true, ".rar": true, ".tar": true, ".gzip": true,
	".mp3": true, ".mpeg": true, ".wav": true, ".ogg": true, ".jpeg": true,
	".jpg": true, ".png": true, ".gif": true, ".bmp": true, ".tif": true,
	".webm": true, ".mpeg4": true, ".3gpp": true, ".mov": true, ".avi": true,
	".mpegs": true, ".wmv": true, ".flx": true, ".txt": true,
}

// AttachmentStore stores attachment files keyed by message id, laid out as
// {root}/attachments/{message_id}/{filename}.
type AttachmentStore interface {
	Save(messageID, filename string, content io.Reader) (int64, error)
	Open(messageID, filename string) (io.ReadCloser, error)
	Exists(messageID, filename string) bool
	DeleteMessage(messageID string) error
	DeleteAll() error
	URL(baseURL, messageID, filename string) string
}

// localAttachmentStore implements AttachmentStore on the local filesystem
type localAttachmentStore struct {
	root string
}

// NewLocalAttachmentStore creates an AttachmentStore rooted at basePath
func NewLocalAttachmentStore(basePath string) (AttachmentStore, error) {
	root := filepath.Join(basePath, attachmentsDir)
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &localAttachmentStore{root: root}, nil
}

// ExtensionAllowed reports whether the filename's extension is on the
// allow-list.
func ExtensionAllowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// resolve validates the message id and filename and returns the absolute
// path, rejecting anything that would escape the store root.
func (s *localAttachmentStore) resolve(messageID, filename string) (string, error) {
	if messageID == "" || filename == "" {
		return "", ErrPathTraversal
	}
	for _, part := range []string{messageID, filename} {
		clean := filepath.Clean(part)
		if clean != part || filepath.IsAbs(clean) || strings.ContainsAny(part, `/\`) || strings.Contains(clean, "..") {
			return "", ErrPathTraversal
		}
	}
	return filepath.Join(s.root, messageID, filename), nil
}

// Save writes an attachment, creating the message directory on demand.
// Concurrent saves for different message ids do not interfere; the caller
// must not save and delete the same message id concurrently.
func (s *localAttachmentStore) Save(messageID, filename string, content io.Reader) (int64, error) {
	if !ExtensionAllowed(filename) {
		return 0, ErrExtensionNotAllowed
	}

	fullPath, err := s.resolve(messageID, filename)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return 0, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(file, content)
	if err != nil {
		os.Remove(fullPath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// Open retrieves an attachment by message id and filename
func (s *localAttachmentStore) Open(messageID, filename string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(messageID, filename)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrFileNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Exists reports whether the attachment file is present on disk
func (s *localAttachmentStore) Exists(messageID, filename string) bool {
	fullPath, err := s.resolve(messageID, filename)
	if err != nil {
		return false
	}
	info, err := os.Lstat(fullPath)
	return err == nil && info.Mode().IsRegular()
}

// DeleteMessage removes the message's attachment directory recursively.
// A missing directory is a no-op.
func (s *localAttachmentStore) DeleteMessage(messageID string) error {
	if messageID == "" || strings.ContainsAny(messageID, `/\`) || strings.Contains(messageID, "..") {
		return ErrPathTraversal
	}
	return RemoveTree(filepath.Join(s.root, messageID))
}

// DeleteAll removes every stored attachment and recreates the empty root.
// Used by the live-mailbox sweep, which cannot correlate protocol message
// identity back to local directories.
func (s *localAttachmentStore) DeleteAll() error {
	if err := RemoveTree(s.root); err != nil {
		return err
	}
	return os.MkdirAll(s.root, 0755)
}

// URL returns the public retrieval URL for an attachment
func (s *localAttachmentStore) URL(baseURL, messageID, filename string) string {
	return strings.TrimSuffix(baseURL, "/") + "/tmp/" + attachmentsDir + "/" + messageID + "/" + filename
}
