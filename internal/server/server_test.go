package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/apperrors"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/tenant"
)

// routerStub mocks the dispatch contract the server fronts.
type routerStub struct {
	mock.Mock
}

func (r *routerStub) Dispatch(ctx context.Context, platform model.Platform, raw []byte, source string) error {
	args := r.Called(ctx, platform, raw, source)
	return args.Error(0)
}

func newTestServer(t *testing.T) (*Server, *routerStub) {
	router := new(routerStub)
	return NewServer(0, router, zaptest.NewLogger(t)), router
}

func postWebhook(t *testing.T, s *Server, platform, companyID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/"+platform, strings.NewReader(body))
	if companyID != "" {
		req.Header.Set("X-Company-ID", companyID)
	}
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleWebhook_Accepted(t *testing.T) {
	s, router := newTestServer(t)

	router.On("Dispatch", mock.Anything, model.PlatformJNE, []byte(`{"awb":"JNE1"}`), "http").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			companyID, err := tenant.FromContext(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "tenant-1", companyID)
		}).
		Return(nil)

	rec := postWebhook(t, s, "jne", "tenant-1", `{"awb":"JNE1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "accepted", resp.Status)
	assert.NotEmpty(t, resp.RequestID)
	router.AssertExpectations(t)
}

func TestHandleWebhook_UnknownPlatformPath(t *testing.T) {
	s, router := newTestServer(t)

	rec := postWebhook(t, s, "telegram", "tenant-1", `{}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	router.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_MissingCompanyHeader(t *testing.T) {
	s, router := newTestServer(t)

	rec := postWebhook(t, s, "jne", "", `{}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	router.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_UnparseablePayloadIsBadRequest(t *testing.T) {
	s, router := newTestServer(t)

	router.On("Dispatch", mock.Anything, model.PlatformWaba, mock.Anything, "http").
		Return(apperrors.ErrUnparseablePayload)

	rec := postWebhook(t, s, "waba", "tenant-1", `not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWebhook_ProcessingErrorIsServerError(t *testing.T) {
	s, router := newTestServer(t)

	router.On("Dispatch", mock.Anything, model.PlatformWaba, mock.Anything, "http").
		Return(apperrors.NewRetryable(apperrors.ErrDatabase, "insert failed"))

	rec := postWebhook(t, s, "waba", "tenant-1", `{"entry":[]}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleWebhook_RequestIDPropagated(t *testing.T) {
	s, router := newTestServer(t)

	router.On("Dispatch", mock.Anything, model.PlatformJNE, mock.Anything, "http").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			requestID, err := tenant.FromRequestIDContext(ctx)
			assert.NoError(t, err)
			assert.Equal(t, "req-supplied-1", requestID)
		}).
		Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/jne", strings.NewReader(`{"awb":"JNE1"}`))
	req.Header.Set("X-Company-ID", "tenant-1")
	req.Header.Set("X-Request-ID", "req-supplied-1")
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp WebhookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-supplied-1", resp.RequestID)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.httpServer.Handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
