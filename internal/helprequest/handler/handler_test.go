package handler

//go:generate mockgen -source=handler.go -destination=mocks/helprequest-mocks.go -package=mocks Service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"nearhelp/internal/helprequest"
	"nearhelp/internal/helprequest/handler/mocks"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/testutil"
)

type HelpRequestHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *HelpRequestHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

func TestHelpRequestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HelpRequestHandlerSuite))
}

func newTestHandler(t *testing.T) (*Handler, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(mockService, logger, nil, nil), mockService
}

// authedRequest builds a request as it looks after RequireAuth ran, with
// the optional helpRequestID route param resolved.
func authedRequest(method, target, userID string, body []byte, helpRequestID string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req = testutil.WithUserID(req, userID)
	if helpRequestID != "" {
		req = testutil.WithRouteParam(req, "helpRequestID", helpRequestID)
	}
	return req
}

func sampleHelpRequest(t *testing.T, requesterID domain.UserID) helprequest.HelpRequest {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	loc, err := domain.NewLocation(35.6895, 139.6917)
	require.NoError(t, err)
	info, err := helprequest.NewUserInfo("supporter-1", "ren", "https://cdn.example/ren.png", "red jacket", "device-s1")
	require.NoError(t, err)
	candidates, err := helprequest.NewCandidates(helprequest.NewCandidate(info))
	require.NoError(t, err)

	hr := helprequest.New(domain.NewHelpRequestID(), domain.NewVerificationID(), requesterID, loc, now)
	hr, err = hr.AddCandidates(candidates, now)
	require.NoError(t, err)
	hr, err = hr.RequestVerification(now)
	require.NoError(t, err)
	return hr
}

func (s *HelpRequestHandlerSuite) TestHandleCreate() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")

	mockService.EXPECT().Create(gomock.Any(), domain.UserID("user123"), gomock.Any()).Return(hr, nil)

	body, err := json.Marshal(createRequest{Latitude: 35.6895, Longitude: 139.6917})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleCreate(w, authedRequest(http.MethodPost, "/help-requests", "user123", body, ""))

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp helpRequestResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), hr.ID.String(), resp.ID)
	assert.Equal(s.T(), string(helprequest.StatusVerificationRequested), resp.Status)
	assert.Equal(s.T(), hr.VerificationID.String(), resp.ProximityVerificationID)
	assert.Equal(s.T(), "2026-03-14T09:31:00Z", resp.ExpiredAt)
	require.Len(s.T(), resp.Candidates, 1)
	assert.Equal(s.T(), "supporter-1", resp.Candidates[0].UserID)
}

func (s *HelpRequestHandlerSuite) TestHandleCreateInvalidLocation() {
	handler, _ := newTestHandler(s.T())

	body, err := json.Marshal(createRequest{Latitude: 120, Longitude: 0})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleCreate(w, authedRequest(http.MethodPost, "/help-requests", "user123", body, ""))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleCreateNoNearbyDevices() {
	handler, mockService := newTestHandler(s.T())
	mockService.EXPECT().Create(gomock.Any(), domain.UserID("user123"), gomock.Any()).
		Return(helprequest.HelpRequest{}, dErrors.New(dErrors.CodeNoNearbyDevices, "no devices available nearby"))

	body, err := json.Marshal(createRequest{Latitude: 35.6895, Longitude: 139.6917})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleCreate(w, authedRequest(http.MethodPost, "/help-requests", "user123", body, ""))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]any
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "no_nearby_devices", resp["error"])
}

func (s *HelpRequestHandlerSuite) TestHandleGet() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")
	mockService.EXPECT().Get(gomock.Any(), hr.ID).Return(hr, nil).Times(2)

	// the requester sees the request
	w := httptest.NewRecorder()
	handler.handleGet(w, authedRequest(http.MethodGet, "/help-requests/"+hr.ID.String(), "user123", nil, hr.ID.String()))
	assert.Equal(s.T(), http.StatusOK, w.Code)

	// an uninvolved user gets not-found, not someone else's matching state
	w = httptest.NewRecorder()
	handler.handleGet(w, authedRequest(http.MethodGet, "/help-requests/"+hr.ID.String(), "stranger", nil, hr.ID.String()))
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleVerificationResult() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")

	mockService.EXPECT().HandleVerificationResult(gomock.Any(), hr.ID, hr.VerificationID, domain.UserID("supporter-1"), true).Return(nil)

	body, err := json.Marshal(verificationResultRequest{
		ProximityVerificationID: hr.VerificationID.String(),
		Succeeded:               true,
	})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleVerificationResult(w, authedRequest(http.MethodPost, "/help-requests/"+hr.ID.String()+"/verification-result", "supporter-1", body, hr.ID.String()))

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleVerificationResultLate() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")

	mockService.EXPECT().HandleVerificationResult(gomock.Any(), hr.ID, hr.VerificationID, domain.UserID("supporter-1"), true).
		Return(dErrors.New(dErrors.CodeInvalidState, "help request is not in a state that allows this operation"))

	body, err := json.Marshal(verificationResultRequest{
		ProximityVerificationID: hr.VerificationID.String(),
		Succeeded:               true,
	})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleVerificationResult(w, authedRequest(http.MethodPost, "/help-requests/"+hr.ID.String()+"/verification-result", "supporter-1", body, hr.ID.String()))

	assert.Equal(s.T(), http.StatusConflict, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleRespond() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")
	mockService.EXPECT().RecordResponse(gomock.Any(), hr.ID, domain.UserID("supporter-1"), true).Return(nil)

	body, err := json.Marshal(respondRequest{Accepted: true})
	require.NoError(s.T(), err)
	w := httptest.NewRecorder()
	handler.handleRespond(w, authedRequest(http.MethodPost, "/help-requests/"+hr.ID.String()+"/respond", "supporter-1", body, hr.ID.String()))

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleComplete() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")
	mockService.EXPECT().Complete(gomock.Any(), hr.ID, domain.UserID("user123")).Return(nil)

	w := httptest.NewRecorder()
	handler.handleComplete(w, authedRequest(http.MethodPost, "/help-requests/"+hr.ID.String()+"/complete", "user123", nil, hr.ID.String()))

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *HelpRequestHandlerSuite) TestHandleTimeout() {
	handler, mockService := newTestHandler(s.T())
	hr := sampleHelpRequest(s.T(), "user123")
	mockService.EXPECT().OnVerificationTimeout(gomock.Any(), hr.ID).Return(nil)

	w := httptest.NewRecorder()
	handler.handleTimeout(w, authedRequest(http.MethodPost, "/internal/help-requests/"+hr.ID.String()+"/timeout", "ops", nil, hr.ID.String()))

	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *HelpRequestHandlerSuite) TestInvalidPathID() {
	handler, _ := newTestHandler(s.T())

	w := httptest.NewRecorder()
	handler.handleComplete(w, authedRequest(http.MethodPost, "/help-requests/nope/complete", "user123", nil, "nope"))

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}
