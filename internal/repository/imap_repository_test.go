package repository

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tossmail/tossmail-backend/internal/models"
)

func TestParseUID(t *testing.T) {
	uid, err := parseUID("42")
	require.NoError(t, err)
	assert.Equal(t, imap.UID(42), uid)

	_, err = parseUID("not-a-uid")
	assert.Error(t, err)

	_, err = parseUID("-1")
	assert.Error(t, err)
}

func TestHasFlag(t *testing.T) {
	flags := []imap.Flag{imap.FlagSeen, imap.FlagAnswered}

	assert.True(t, hasFlag(flags, imap.FlagSeen))
	assert.False(t, hasFlag(flags, imap.FlagDeleted))
	assert.False(t, hasFlag(nil, imap.FlagSeen))
}

func TestAddressListContains(t *testing.T) {
	addrs := []imap.Address{
		{Name: "Alice", Mailbox: "alice", Host: "example.org"},
		{Mailbox: "box", Host: "tossmail.io"},
	}

	assert.True(t, addressListContains(addrs, "box@tossmail.io"))
	assert.True(t, addressListContains(addrs, "BOX@TOSSMAIL.IO"))
	assert.False(t, addressListContains(addrs, "other@tossmail.io"))
	assert.False(t, addressListContains(nil, "box@tossmail.io"))
}

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "", formatAddress(nil))
	assert.Equal(t, "alice@example.org", formatAddress([]imap.Address{
		{Mailbox: "alice", Host: "example.org"},
	}))
	assert.Equal(t, "Alice <alice@example.org>", formatAddress([]imap.Address{
		{Name: "Alice", Mailbox: "alice", Host: "example.org"},
	}))
}

func TestIMAPRepositoryIsReadOnly(t *testing.T) {
	repo := NewIMAPMessageRepository(IMAPOptions{Host: "imap.example.org", Port: 993}, nil)

	err := repo.CreateWithAttachments(context.Background(), &models.Message{}, nil)
	assert.ErrorIs(t, err, ErrReadOnlyBackend)
}

func TestIMAPRepositoryUnreachableHost(t *testing.T) {
	repo := NewIMAPMessageRepository(IMAPOptions{
		Host:        "127.0.0.1",
		Port:        1, // nothing listens here
		UseTLS:      false,
		DialTimeout: time.Second,
	}, nil)

	_, err := repo.ListForAddress(context.Background(), "box@tossmail.io", 10)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
}
