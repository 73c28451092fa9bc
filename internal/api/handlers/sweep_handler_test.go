package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/tossmail/tossmail-backend/internal/config"
	"github.com/tossmail/tossmail-backend/internal/services"
	"github.com/tossmail/tossmail-backend/tests/mocks"
)

// SweepHandlerTestSuite is the test suite for SweepHandler
type SweepHandlerTestSuite struct {
	suite.Suite
	echo      *echo.Echo
	handler   *SweepHandler
	mockRepo  *mocks.MockMessageRepository
	mockAudit *mocks.MockAuditRepository
	mockStore *mocks.MockAttachmentStore
}

// SetupTest runs before each test
func (s *SweepHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.mockRepo = new(mocks.MockMessageRepository)
	s.mockAudit = new(mocks.MockAuditRepository)
	s.mockStore = new(mocks.MockAttachmentStore)

	cfg := &config.Config{
		MessageSource:  config.SourceDatabase,
		RetentionUnit:  config.RetentionDays,
		RetentionValue: 1,
	}
	sweeper := services.NewRetentionSweeper(cfg, s.mockRepo, s.mockAudit, s.mockStore, testLogger())
	s.handler = NewSweepHandler(sweeper, "topsecret", testLogger())
}

// TestSweepHandlerTestSuite runs the test suite
func TestSweepHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SweepHandlerTestSuite))
}

func (s *SweepHandlerTestSuite) sweepContext(secret string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/sweep/"+secret, nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetPath("/api/sweep/:secret")
	c.SetParamNames("secret")
	c.SetParamValues(secret)
	return c, rec
}

func (s *SweepHandlerTestSuite) TestTriggerWithValidSecret() {
	s.mockRepo.On("DeleteOlderThan", mock.Anything, mock.Anything, 0).
		Return(3, []string{"a", "b", "c"}, nil).Once()
	s.mockStore.On("DeleteMessage", mock.Anything).Return(nil).Times(3)
	s.mockAudit.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(0, nil).Once()

	c, rec := s.sweepContext("topsecret")
	s.NoError(s.handler.Trigger(c))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("Deleted 3 Messages", rec.Body.String())
}

func (s *SweepHandlerTestSuite) TestTriggerWithWrongSecret() {
	c, rec := s.sweepContext("guess")
	s.NoError(s.handler.Trigger(c))

	s.Equal(http.StatusUnauthorized, rec.Code)
	s.mockRepo.AssertNotCalled(s.T(), "DeleteOlderThan", mock.Anything, mock.Anything, mock.Anything)
}

func (s *SweepHandlerTestSuite) TestTriggerWithoutConfiguredSecret() {
	// An unset secret disables the endpoint rather than opening it up
	s.handler = NewSweepHandler(nil, "", testLogger())

	c, rec := s.sweepContext("")
	s.NoError(s.handler.Trigger(c))
	s.Equal(http.StatusUnauthorized, rec.Code)
}
