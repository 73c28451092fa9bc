package repository

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	imap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/jhillyerd/enmime"
	"github.com/tossmail/tossmail-backend/internal/models"
)

// IMAPOptions holds connection settings for the live-mailbox backend
type IMAPOptions struct {
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	DialTimeout time.Duration
	FetchLimit  int
}

// imapMessageRepository implements MessageRepository against a live remote
// mailbox. Protocol state (selected folder, pending expunge) is
// connection-local, so every operation opens its own short-lived
// connection: dial, login, select, act, expunge where relevant, close.
// Connections are never shared across callers.
type imapMessageRepository struct {
	opts   IMAPOptions
	logger *slog.Logger
}

// NewIMAPMessageRepository creates the live-mailbox MessageRepository
func NewIMAPMessageRepository(opts IMAPOptions, logger *slog.Logger) MessageRepository {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 15 * time.Second
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 25
	}
	return &imapMessageRepository{opts: opts, logger: logger}
}

// connect dials the server, authenticates and selects INBOX. The returned
// cleanup must be called once the operation is finished.
func (r *imapMessageRepository) connect(ctx context.Context) (*imapclient.Client, func(), error) {
	address := net.JoinHostPort(r.opts.Host, strconv.Itoa(r.opts.Port))

	dialer := &net.Dialer{Timeout: r.opts.DialTimeout}
	var (
		conn net.Conn
		err  error
	)
	if r.opts.UseTLS {
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: r.opts.Host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", address)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial %s: %v", ErrBackendUnavailable, address, err)
	}

	client := imapclient.New(conn, nil)

	if err := client.Login(r.opts.Username, r.opts.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: login: %v", ErrBackendUnavailable, err)
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("%w: select INBOX: %v", ErrBackendUnavailable, err)
	}

	cleanup := func() {
		if err := client.Logout().Wait(); err != nil && r.logger != nil {
			r.logger.Debug("imap logout failed", slog.Any("error", err))
		}
		_ = client.Close()
	}

	return client, cleanup, nil
}

// CreateWithAttachments is not supported: the live inbox receives mail via
// upstream SMTP delivery, not local ingestion.
func (r *imapMessageRepository) CreateWithAttachments(ctx context.Context, message *models.Message, attachments []models.Attachment) error {
	return ErrReadOnlyBackend
}

// ListForAddress fetches inbox messages addressed to the mailbox
func (r *imapMessageRepository) ListForAddress(ctx context.Context, address string, limit int) ([]models.Message, error) {
	return r.list(ctx, address, limit, false)
}

// ListForCopyRecipient fetches inbox messages carbon-copied to the mailbox
func (r *imapMessageRepository) ListForCopyRecipient(ctx context.Context, address string, limit int) ([]models.Message, error) {
	return r.list(ctx, address, limit, true)
}

func (r *imapMessageRepository) list(ctx context.Context, address string, limit int, matchCC bool) ([]models.Message, error) {
	if limit <= 0 {
		limit = r.opts.FetchLimit
	}

	client, cleanup, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	data, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrBackendUnavailable, err)
	}
	uids := data.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:          true,
		Flags:        true,
		Envelope:     true,
		InternalDate: true,
		BodySection:  []*imap.FetchItemBodySection{{}},
	})
	buffers, err := fetchCmd.Collect()
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", ErrBackendUnavailable, err)
	}

	var messages []models.Message
	for _, buf := range buffers {
		if buf.Envelope == nil {
			continue
		}
		recipients := buf.Envelope.To
		if matchCC {
			recipients = buf.Envelope.Cc
		}
		if !addressListContains(recipients, address) {
			continue
		}

		msg := r.toMessage(buf, address)
		messages = append(messages, msg)
		if len(messages) >= limit {
			break
		}
	}

	return messages, nil
}

// toMessage converts a fetched buffer into the repository message model
func (r *imapMessageRepository) toMessage(buf *imapclient.FetchMessageBuffer, address string) models.Message {
	msg := models.Message{
		ID:        strconv.FormatUint(uint64(buf.UID), 10),
		Recipient: address,
		Subject:   buf.Envelope.Subject,
		Sender:    formatAddress(buf.Envelope.From),
		CreatedAt: buf.InternalDate,
		Seen:      hasFlag(buf.Flags, imap.FlagSeen),
	}

	raw := buf.FindBodySection(&imap.FetchItemBodySection{})
	if len(raw) == 0 {
		return msg
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("failed to parse fetched message", slog.String("uid", msg.ID), slog.Any("error", err))
		}
		return msg
	}

	if from := env.GetHeader("From"); from != "" {
		msg.Sender = from
	}
	if env.HTML != "" {
		msg.Body = env.HTML
	} else {
		msg.Body = env.Text
	}
	for _, part := range env.Inlines {
		if part.FileName != "" {
			msg.Attachments = append(msg.Attachments, models.Attachment{
				MessageID: msg.ID,
				ContentID: part.ContentID,
				Filename:  part.FileName,
			})
		}
	}
	for _, part := range env.Attachments {
		msg.Attachments = append(msg.Attachments, models.Attachment{
			MessageID: msg.ID,
			ContentID: part.ContentID,
			Filename:  part.FileName,
		})
	}

	return msg
}

// MarkSeen adds the \Seen flag to the message
func (r *imapMessageRepository) MarkSeen(ctx context.Context, id string) error {
	uid, err := parseUID(id)
	if err != nil {
		return ErrNotFound
	}

	client, cleanup, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagSeen}}
	if err := client.Store(imap.UIDSetNum(uid), store, nil).Close(); err != nil {
		return fmt.Errorf("%w: store \\Seen: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Delete marks the message \Deleted and expunges. Deleting an unknown uid
// is a no-op on the server side, which preserves delete idempotence.
func (r *imapMessageRepository) Delete(ctx context.Context, id string) error {
	uid, err := parseUID(id)
	if err != nil {
		return nil
	}

	client, cleanup, err := r.connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagDeleted}}
	if err := client.Store(imap.UIDSetNum(uid), store, nil).Close(); err != nil {
		return fmt.Errorf("%w: store \\Deleted: %v", ErrBackendUnavailable, err)
	}
	if _, err := client.Expunge().Collect(); err != nil {
		return fmt.Errorf("%w: expunge: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// DeleteOlderThan deletes up to limit messages received before cutoff. One
// invocation serves exactly one connection lifetime; remaining expired
// messages are left for the next run. Deleted uids are not correlated to
// local attachment directories, so no ids are returned.
func (r *imapMessageRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time, limit int) (int, []string, error) {
	client, cleanup, err := r.connect(ctx)
	if err != nil {
		return 0, nil, err
	}
	defer cleanup()

	data, err := client.UIDSearch(&imap.SearchCriteria{Before: cutoff}, nil).Wait()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: search before %s: %v", ErrBackendUnavailable, cutoff.Format(time.DateOnly), err)
	}

	uids := data.AllUIDs()
	if len(uids) == 0 {
		return 0, nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[:limit]
	}

	store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagDeleted}}
	if err := client.Store(imap.UIDSetNum(uids...), store, nil).Close(); err != nil {
		return 0, nil, fmt.Errorf("%w: store \\Deleted: %v", ErrBackendUnavailable, err)
	}
	if _, err := client.Expunge().Collect(); err != nil {
		return 0, nil, fmt.Errorf("%w: expunge: %v", ErrBackendUnavailable, err)
	}

	return len(uids), nil, nil
}

func parseUID(id string) (imap.UID, error) {
	v, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, err
	}
	return imap.UID(v), nil
}

func hasFlag(flags []imap.Flag, flag imap.Flag) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}

func addressListContains(addrs []imap.Address, address string) bool {
	for _, a := range addrs {
		if strings.EqualFold(a.Addr(), address) {
			return true
		}
	}
	return false
}

func formatAddress(addrs []imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	a := addrs[0]
	if a.Name != "" {
		return fmt.Sprintf("%s <%s>", a.Name, a.Addr())
	}
	return a.Addr()
}
