package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/tossmail/tossmail-backend/internal/models"
	"github.com/tossmail/tossmail-backend/internal/services"
	"github.com/tossmail/tossmail-backend/internal/storage"
	"github.com/tossmail/tossmail-backend/internal/websocket"
	"github.com/tossmail/tossmail-backend/tests/mocks"
)

// IngestHandlerTestSuite is the test suite for IngestHandler
type IngestHandlerTestSuite struct {
	suite.Suite
	echo     *echo.Echo
	handler  *IngestHandler
	mockRepo *mocks.MockMessageRepository
	store    storage.AttachmentStore
	stats    *services.Stats
}

// SetupTest runs before each test
func (s *IngestHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockRepo = new(mocks.MockMessageRepository)

	store, err := storage.NewLocalAttachmentStore(s.T().TempDir())
	require.NoError(s.T(), err)
	s.store = store

	s.stats = services.NewStats()
	hub := websocket.NewHub(testLogger())
	s.handler = NewIngestHandler(s.mockRepo, s.store, hub, s.stats, testLogger())
}

// TearDownTest runs after each test
func (s *IngestHandlerTestSuite) TearDownTest() {
	s.mockRepo.AssertExpectations(s.T())
}

// TestIngestHandlerTestSuite runs the test suite
func TestIngestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(IngestHandlerTestSuite))
}

func (s *IngestHandlerTestSuite) ingestContext(fields map[string]string, files map[string][2]string) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	for field, file := range files {
		fw, err := w.CreateFormFile(field, file[0])
		s.Require().NoError(err)
		_, err = fw.Write([]byte(file[1]))
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	return s.echo.NewContext(req, rec), rec
}

func (s *IngestHandlerTestSuite) TestIngestStoresMessage() {
	var captured *models.Message
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.Message)
		}).Return(nil).Once()

	c, rec := s.ingestContext(map[string]string{
		"to":      "Box@tossmail.io",
		"from":    "Alice <alice@example.org>",
		"subject": "webhook hello",
		"html":    "<p>hi</p>",
		"text":    "hi",
	}, nil)

	s.NoError(s.handler.Ingest(c))
	s.Equal(http.StatusCreated, rec.Code)

	require.NotNil(s.T(), captured)
	s.Equal("box@tossmail.io", captured.Recipient)
	s.Equal("webhook hello", captured.Subject)
	s.Equal("<p>hi</p>", captured.Body)
	s.EqualValues(1, s.stats.ReceivedMessages())
}

func (s *IngestHandlerTestSuite) TestIngestFallsBackToTextBody() {
	var captured *models.Message
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*models.Message)
		}).Return(nil).Once()

	c, rec := s.ingestContext(map[string]string{
		"to":   "box@tossmail.io",
		"from": "a@b.c",
		"text": "plain only",
	}, nil)

	s.NoError(s.handler.Ingest(c))
	s.Equal(http.StatusCreated, rec.Code)
	s.Equal("plain only", captured.Body)
}

func (s *IngestHandlerTestSuite) TestIngestRequiresRecipient() {
	c, rec := s.ingestContext(map[string]string{"from": "a@b.c"}, nil)
	s.NoError(s.handler.Ingest(c))
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *IngestHandlerTestSuite) TestIngestSavesAttachments() {
	var manifest []models.Attachment
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			manifest = args.Get(2).([]models.Attachment)
		}).Return(nil).Once()

	c, rec := s.ingestContext(map[string]string{
		"to":              "box@tossmail.io",
		"from":            "a@b.c",
		"html":            `<img src="cid:logo1">`,
		"attachment-info": `{"attachment-1":{"name":"logo.png","content-id":"<logo1>"}}`,
	}, map[string][2]string{
		"attachment-1": {"logo.png", "png bytes"},
	})

	s.NoError(s.handler.Ingest(c))
	s.Equal(http.StatusCreated, rec.Code)

	require.Len(s.T(), manifest, 1)
	s.Equal("logo.png", manifest[0].Filename)
	s.Equal("logo1", manifest[0].ContentID)
	s.True(s.store.Exists(manifest[0].MessageID, "logo.png"))
}

func (s *IngestHandlerTestSuite) TestIngestDropsDisallowedAttachments() {
	var manifest []models.Attachment
	s.mockRepo.On("CreateWithAttachments", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			manifest = args.Get(2).([]models.Attachment)
		}).Return(nil).Once()

	c, rec := s.ingestContext(map[string]string{
		"to":   "box@tossmail.io",
		"from": "a@b.c",
		"text": "see attached",
	}, map[string][2]string{
		"attachment-1": {"payload.exe", "MZ"},
	})

	s.NoError(s.handler.Ingest(c))
	s.Equal(http.StatusCreated, rec.Code)
	s.Empty(manifest)
}
