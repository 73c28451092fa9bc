package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/tests/mocks"
)

// SessionTestSuite is the test suite for SMTP sessions
type SessionTestSuite struct {
	suite.Suite
	mockRepo *mocks.MockMessageRepository
	store    storage.AttachmentStore
	session  *Session
}

// SetupTest runs before each test
func (s *SessionTestSuite) SetupTest() {
	s.mockRepo = new(mocks.MockMessageRepository)

	store, err := storage.NewLocalAttachmentStore(s.T().TempDir())
	require.NoError(s.T(), err)
	s.store = store

	backend := NewBackend(&BackendConfig{
		MessageRepo: s.mockRepo,
		Store:       store,
		Domain:      "tossmail.io",
	})
	s.session = NewSession(backend)
}

// TearDownTest runs after each test
func (s *SessionTestSuite) TearDownTest() {
	s.mockRepo.AssertExpectations(s.T())
}

// TestSessionTestSuite runs the test suite
func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}

func (s *SessionTestSuite) TestRcptAcceptsLocalDomain() {
	s.NoError(s.session.Rcpt("box@tossmail.io", nil))
	s.NoError(s.session.Rcpt("<Other@TOSSMAIL.IO>", nil))
}

func (s *SessionTestSuite) TestRcptRejectsRelay() {
	err := s.session.Rcpt("someone@elsewhere.example", nil)
	s.Error(err)
	s.Contains(err.Error(), "Relay not permitted")
}

func (s *SessionTestSuite) TestRcptRejectsMalformedAddress() {
	s.Error(s.session.Rcpt("not-an-address", nil))
}

func (s *SessionTestSuite) TestDataWithoutRecipients() {
	err := s.session.Data(strings.NewReader(plainEmail))
	s.Error(err)
}

func (s *SessionTestSuite) TestDataStoresMessagePerRecipient() {
	var captured []*models.Message
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = append(captured, args.Get(1).(*models.Message))
		}).Return(nil).Twice()

	s.Require().NoError(s.session.Mail("alice@example.org", nil))
	s.Require().NoError(s.session.Rcpt("one@tossmail.io", nil))
	s.Require().NoError(s.session.Rcpt("two@tossmail.io", nil))

	s.NoError(s.session.Data(strings.NewReader(plainEmail)))

	s.Require().Len(captured, 2)
	s.Equal("one@tossmail.io", captured[0].Recipient)
	s.Equal("two@tossmail.io", captured[1].Recipient)
	s.Equal("plain hello", captured[0].Subject)
	s.NotEmpty(captured[0].ID)
}

func (s *SessionTestSuite) TestDataSavesAllowedAttachments() {
	var manifest []models.Attachment
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			manifest = args.Get(2).([]models.Attachment)
		}).Return(nil).Once()

	s.Require().NoError(s.session.Rcpt("box@tossmail.io", nil))
	s.NoError(s.session.Data(strings.NewReader(multipartEmail)))

	require.Len(s.T(), manifest, 2)
	names := []string{manifest[0].Filename, manifest[1].Filename}
	s.ElementsMatch([]string{"pixel.png", "report.pdf"}, names)
}

func (s *SessionTestSuite) TestResetClearsState() {
	s.Require().NoError(s.session.Mail("alice@example.org", nil))
	s.Require().NoError(s.session.Rcpt("box@tossmail.io", nil))

	s.session.Reset()

	err := s.session.Data(strings.NewReader(plainEmail))
	s.Error(err, "no recipients after reset")
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "box@tossmail.io", normalizeAddress("<Box@Tossmail.IO>"))
	assert.Equal(t, "box@tossmail.io", normalizeAddress("  box@tossmail.io "))
}

func TestSplitSenderHeader(t *testing.T) {
	name, email := splitSender("Alice <alice@example.org>")
	assert.Equal(t, "Alice", name)
	assert.Equal(t, "alice@example.org", email)

	name, email = splitSender("bare@example.org")
	assert.Equal(t, "bare@example.org", name)
	assert.Equal(t, "bare@example.org", email)
}
