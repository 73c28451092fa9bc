package services

import (
	"context"
	"fmt"

	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/render"
	"github.com/tossmail/tossmail-backend/internal/repository"
)

// PollRequest carries one polling cycle's input. RemovedIDs and PriorCount
// are client-held state: the server keeps nothing between polls.
type PollRequest struct {
	Address    string
	RemovedIDs []string
	PriorCount int
	Overflow   bool
	ViewerIP   string
}

// Notification describes one newly-seen message
type Notification struct {
	Subject     string `json:"subject"`
	SenderName  string `json:"sender_name"`
	SenderEmail string `json:"sender_email"`
}

// PollResult is the outcome of one polling cycle
type PollResult struct {
	Messages      []*render.MessageView `json:"messages"`
	Notifications []Notification        `json:"notifications"`
	Overflow      bool                  `json:"overflow"`
}

// PollService computes the visible message list for a mailbox and the
// subset that is notification-worthy, flipping seen state exactly once per
// message via the renderer.
type PollService struct {
	cfg      *config.Config
	repo     repository.MessageRepository
	renderer *render.Renderer
}

// NewPollService creates a PollService
func NewPollService(cfg *config.Config, repo repository.MessageRepository, renderer *render.Renderer) *PollService {
	return &PollService{cfg: cfg, repo: repo, renderer: renderer}
}

// Poll runs one polling cycle. Any backend failure aborts the poll; the
// caller decides how much error detail to expose.
func (s *PollService) Poll(ctx context.Context, req PollRequest) (*PollResult, error) {
	removed := make(map[string]bool, len(req.RemovedIDs))
	for _, id := range req.RemovedIDs {
		removed[id] = true
	}

	messages, err := s.repo.ListForAddress(ctx, req.Address, s.cfg.FetchLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// The carbon-copy branch does no work at all when the toggle is off.
	if s.cfg.CCCheckEnabled {
		ccMessages, err := s.repo.ListForCopyRecipient(ctx, req.Address, s.cfg.FetchLimit)
		if err != nil {
			return nil, fmt.Errorf("list cc messages: %w", err)
		}
		messages = mergeMessages(messages, ccMessages)
	}

	result := &PollResult{
		Messages:      []*render.MessageView{},
		Notifications: []Notification{},
		Overflow:      req.Overflow,
	}

	for i := range messages {
		msg := &messages[i]
		// Client-side optimistic deletes still pending server
		// confirmation stay hidden.
		if removed[msg.ID] {
			continue
		}

		view, err := s.renderer.Render(ctx, msg, req.ViewerIP)
		if err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		result.Messages = append(result.Messages, view)

		if view.Notify {
			result.Notifications = append(result.Notifications, Notification{
				Subject:     view.Subject,
				SenderName:  view.SenderName,
				SenderEmail: view.SenderEmail,
			})
		}
	}

	// Overflow signals that unseen volume outgrew the visible list: new
	// notifications arrived but the list did not get longer.
	if len(result.Notifications) > 0 {
		if !req.Overflow && len(result.Messages) == req.PriorCount {
			result.Overflow = true
		}
	} else {
		result.Overflow = false
	}

	return result, nil
}

// mergeMessages appends cc matches that are not already present by id
func mergeMessages(primary, secondary []models.Message) []models.Message {
	seen := make(map[string]bool, len(primary))
	for _, m := range primary {
		seen[m.ID] = true
	}
	for _, m := range secondary {
		if !seen[m.ID] {
			primary = append(primary, m)
		}
	}
	return primary
}
