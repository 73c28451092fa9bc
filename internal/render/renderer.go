// Package render projects stored messages into client-ready view models.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tossmail/tossmail-backend/internal/audit"
	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/storage"
)

// MessageView is the per-message projection returned to the polling client.
// It is computed fresh on every fetch and never cached across polls.
type MessageView struct {
	ID          string           `json:"id"`
	Subject     string           `json:"subject"`
	SenderName  string           `json:"sender_name"`
	SenderEmail string           `json:"sender_email"`
	Timestamp   time.Time        `json:"timestamp"`
	Date        string           `json:"date"`
	DateDiff    string           `json:"datediff"`
	Content     string           `json:"content"`
	Attachments []AttachmentView `json:"attachments"`
	Blocked     bool             `json:"blocked,omitempty"`

	// Notify is set when this render was the message's first; the delta
	// engine turns it into a notification record.
	Notify bool `json:"-"`
}

// AttachmentView is one downloadable attachment of a rendered message
type AttachmentView struct {
	File string `json:"file"`
	URL  string `json:"url"`
}

// Renderer transforms raw stored messages into MessageViews, flipping the
// seen flag on first render.
type Renderer struct {
	cfg    *config.Config
	repo   repository.MessageRepository
	store  storage.AttachmentStore
	audit  *audit.Logger
	policy *bluemonday.Policy
	now    func() time.Time
}

// NewRenderer creates a Renderer
func NewRenderer(cfg *config.Config, repo repository.MessageRepository, store storage.AttachmentStore, auditLog *audit.Logger) *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("target").OnElements("a")
	return &Renderer{
		cfg:    cfg,
		repo:   repo,
		store:  store,
		audit:  auditLog,
		policy: policy,
		now:    time.Now,
	}
}

// Render produces the view model for one message. The first render of a
// never-seen message persists the seen flip and appends an audit record;
// the audit write may fail silently but a failed flip aborts the render.
func (r *Renderer) Render(ctx context.Context, msg *models.Message, viewerIP string) (*MessageView, error) {
	senderName, senderEmail := SplitSender(msg.Sender)

	view := &MessageView{
		ID:          msg.ID,
		Subject:     msg.Subject,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		Timestamp:   msg.CreatedAt,
		Date:        msg.CreatedAt.Format("02 Jan 2006 03:04 PM"),
		DateDiff:    relativeTime(msg.CreatedAt, r.now()),
		Attachments: []AttachmentView{},
	}

	domain := senderDomain(senderEmail)
	if domain != "" && r.cfg.IsDomainBlocked(domain) {
		// Blocked senders short-circuit before attachment resolution.
		view.Blocked = true
		view.Subject = "Blocked"
		view.Content = fmt.Sprintf("Emails from %s are blocked by Admin", domain)
	} else {
		view.Content = r.renderContent(msg, view)
	}

	if !msg.Seen {
		if err := r.repo.MarkSeen(ctx, msg.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to mark message seen: %w", err)
		}
		view.Notify = true
		if r.audit != nil {
			r.audit.Record(ctx, viewerIP, senderEmail, msg.Recipient)
		}
	}

	return view, nil
}

// renderContent resolves the attachment manifest against the body and
// applies sanitization, new-context anchors and optional link masking.
func (r *Renderer) renderContent(msg *models.Message, view *MessageView) string {
	content := msg.Body

	for _, att := range msg.Attachments {
		url := r.store.URL(r.cfg.BaseURL, msg.ID, att.Filename)
		if att.ContentID != "" && strings.Contains(content, att.ContentID) {
			// Inline asset: substitute the resolvable URL for the cid
			// reference, and keep it out of the download list.
			content = strings.ReplaceAll(content, "cid:"+att.ContentID, url)
			continue
		}
		if r.store.Exists(msg.ID, att.Filename) {
			view.Attachments = append(view.Attachments, AttachmentView{File: att.Filename, URL: url})
		}
		// Missing files are skipped silently.
	}

	content = r.policy.Sanitize(content)
	content = strings.ReplaceAll(content, "<a ", `<a target="_blank" `)
	if r.cfg.LinkMaskingEnabled {
		content = strings.ReplaceAll(content, `href="`, `href="`+r.cfg.LinkMaskPrefix)
	}

	return content
}

// SplitSender splits a raw From header at the first <...> delimiter pair.
// Without brackets, display name and address are identical.
func SplitSender(sender string) (name, email string) {
	name = strings.TrimSpace(sender)
	email = name

	if start := strings.Index(sender, "<"); start >= 0 {
		name = strings.TrimSpace(strings.Trim(sender[:start], `" `))
		rest := sender[start+1:]
		if end := strings.Index(rest, ">"); end >= 0 {
			email = strings.TrimSpace(rest[:end])
		} else {
			email = strings.TrimSpace(rest)
		}
		if name == "" {
			name = email
		}
	}

	return name, email
}

// senderDomain returns the part after "@", or empty when absent
func senderDomain(email string) string {
	if at := strings.LastIndex(email, "@"); at >= 0 && at < len(email)-1 {
		return strings.ToLower(email[at+1:])
	}
	return ""
}

// relativeTime formats the age of a timestamp the way the mailbox UI shows
// it ("just now", "5m ago", "3h ago", "2d ago").
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
