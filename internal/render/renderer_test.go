package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/repository"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/tests/mocks"
)

// RendererTestSuite is the test suite for Renderer
type RendererTestSuite struct {
	suite.Suite
	cfg      *config.Config
	mockRepo *mocks.MockMessageRepository
	store    storage.AttachmentStore
	renderer *Renderer
	now      time.Time
}

// SetupTest runs before each test
func (s *RendererTestSuite) SetupTest() {
	s.cfg = &config.Config{
		BaseURL:              "http://localhost:8080",
		LinkMaskingEnabled:   true,
		LinkMaskPrefix:       "https://anon.ws/?",
		BlockedSenderDomains: []string{"spammer.example"},
	}
	s.mockRepo = new(mocks.MockMessageRepository)

	store, err := storage.NewLocalAttachmentStore(s.T().TempDir())
	require.NoError(s.T(), err)
	s.store = store

	s.renderer = NewRenderer(s.cfg, s.mockRepo, s.store, nil)
	s.now = time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)
	s.renderer.now = func() time.Time { return s.now }
}

// TearDownTest runs after each test
func (s *RendererTestSuite) TearDownTest() {
	s.mockRepo.AssertExpectations(s.T())
}

// TestRendererTestSuite runs the test suite
func TestRendererTestSuite(t *testing.T) {
	suite.Run(t, new(RendererTestSuite))
}

func (s *RendererTestSuite) seenMessage(body string) *models.Message {
	return &models.Message{
		ID:        "msg-1",
		Recipient: "box@tossmail.io",
		Sender:    "Alice <alice@example.org>",
		Subject:   "hello",
		Body:      body,
		Seen:      true,
		CreatedAt: s.now.Add(-2 * time.Hour),
	}
}

func (s *RendererTestSuite) TestRenderBasicFields() {
	msg := s.seenMessage("<p>hi there</p>")

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.Equal("msg-1", view.ID)
	s.Equal("hello", view.Subject)
	s.Equal("Alice", view.SenderName)
	s.Equal("alice@example.org", view.SenderEmail)
	s.Equal("15 Mar 2026 02:30 PM", view.Date)
	s.Equal("2h ago", view.DateDiff)
	s.Contains(view.Content, "hi there")
	s.False(view.Notify)
}

func (s *RendererTestSuite) TestRenderFlipsSeenOnce() {
	msg := s.seenMessage("<p>new</p>")
	msg.Seen = false

	s.mockRepo.On("MarkSeen", mock.Anything, "msg-1").Return(nil).Once()

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)
	s.True(view.Notify)
}

func (s *RendererTestSuite) TestRenderSeenFlipToleratesVanishedMessage() {
	msg := s.seenMessage("<p>gone</p>")
	msg.Seen = false

	s.mockRepo.On("MarkSeen", mock.Anything, "msg-1").Return(repository.ErrNotFound).Once()

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)
	s.True(view.Notify)
}

func (s *RendererTestSuite) TestRenderBlockedSender() {
	msg := s.seenMessage("<p>buy stuff</p>")
	msg.Sender = "Spam Bot <bot@spammer.example>"

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.True(view.Blocked)
	s.Equal("Blocked", view.Subject)
	s.Equal("Emails from spammer.example are blocked by Admin", view.Content)
	s.Empty(view.Attachments)
}

func (s *RendererTestSuite) TestRenderInlineAttachmentSubstitution() {
	_, err := s.store.Save("msg-1", "logo.png", strings.NewReader("png"))
	require.NoError(s.T(), err)

	msg := s.seenMessage(`<p><img src="cid:logo123"></p>`)
	msg.Attachments = []models.Attachment{{MessageID: "msg-1", Filename: "logo.png", ContentID: "logo123"}}

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.Contains(view.Content, "http://localhost:8080/tmp/attachments/msg-1/logo.png")
	s.NotContains(view.Content, "cid:")
	// Inline assets stay out of the download list
	s.Empty(view.Attachments)
}

func (s *RendererTestSuite) TestRenderDownloadableAttachment() {
	_, err := s.store.Save("msg-1", "report.pdf", strings.NewReader("pdf"))
	require.NoError(s.T(), err)

	msg := s.seenMessage("<p>see attached</p>")
	msg.Attachments = []models.Attachment{{MessageID: "msg-1", Filename: "report.pdf"}}

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	require.Len(s.T(), view.Attachments, 1)
	s.Equal("report.pdf", view.Attachments[0].File)
	s.Equal("http://localhost:8080/tmp/attachments/msg-1/report.pdf", view.Attachments[0].URL)
}

func (s *RendererTestSuite) TestRenderSkipsMissingAttachmentFiles() {
	msg := s.seenMessage("<p>file lost</p>")
	msg.Attachments = []models.Attachment{{MessageID: "msg-1", Filename: "vanished.pdf"}}

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)
	s.Empty(view.Attachments)
}

func (s *RendererTestSuite) TestRenderSanitizesScripts() {
	msg := s.seenMessage(`<p>hi</p><script>alert(1)</script>`)

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.NotContains(view.Content, "<script>")
	s.Contains(view.Content, "hi")
}

func (s *RendererTestSuite) TestRenderLinksOpenInNewContextAndAreMasked() {
	msg := s.seenMessage(`<p><a href="http://phish.example/x">click</a></p>`)

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.Contains(view.Content, `target="_blank"`)
	s.Contains(view.Content, `href="https://anon.ws/?http://phish.example/x"`)
}

func (s *RendererTestSuite) TestRenderMaskingDisabled() {
	s.cfg.LinkMaskingEnabled = false
	msg := s.seenMessage(`<p><a href="http://ok.example/x">click</a></p>`)

	view, err := s.renderer.Render(context.Background(), msg, "203.0.113.9")
	require.NoError(s.T(), err)

	s.Contains(view.Content, `href="http://ok.example/x"`)
	s.NotContains(view.Content, "anon.ws")
}

func TestSplitSender(t *testing.T) {
	cases := []struct {
		in    string
		name  string
		email string
	}{
		{"Alice <alice@example.org>", "Alice", "alice@example.org"},
		{`"Alice A." <alice@example.org>`, "Alice A.", "alice@example.org"},
		{"alice@example.org", "alice@example.org", "alice@example.org"},
		{"<alice@example.org>", "alice@example.org", "alice@example.org"},
		{"Broken <alice@example.org", "Broken", "alice@example.org"},
	}
	for _, tc := range cases {
		name, email := SplitSender(tc.in)
		assert.Equal(t, tc.name, name, "input %q", tc.in)
		assert.Equal(t, tc.email, email, "input %q", tc.in)
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", relativeTime(now.Add(-30*time.Second), now))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", relativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-49*time.Hour), now))
}
