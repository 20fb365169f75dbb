package handler_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearhelp/internal/device/handler"
	"nearhelp/internal/device/service"
	devstore "nearhelp/internal/device/store"
	jwttoken "nearhelp/internal/jwt_token"
	"nearhelp/internal/platform/middleware"
	"nearhelp/pkg/clock"
	"nearhelp/pkg/testutil"
)

// stubValidator maps bearer tokens straight to claims so router tests can
// exercise the full middleware chain without minting real JWTs. A token of
// the form "user#device" yields a device-bound claim.
type stubValidator struct{}

func (stubValidator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	userID, deviceID, _ := strings.Cut(tokenString, "#")
	return &middleware.JWTClaims{UserID: userID, DeviceID: deviceID}, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewFixed(time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	svc := service.New(devstore.NewMemory(), service.WithLogger(logger), service.WithClock(clk))
	tokens := jwttoken.NewJWTService("test-signing-key", "nearhelp", "nearhelp-api")
	h := handler.New(svc, tokens, logger, nil, stubValidator{})

	r := chi.NewRouter()
	h.Register(r)
	return r
}

func do(t *testing.T, r chi.Router, method, target, asUser string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, target, body)
	req.Header.Set("Authorization", "Bearer "+asUser)
	return testutil.DoRequest(r, req)
}

func TestRegisterAndList(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
		"deviceId":  "device-1",
		"token":     "push-token-1",
		"latitude":  35.6895,
		"longitude": 139.6917,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Device      map[string]any `json:"device"`
		AccessToken string         `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "device-1", created.Device["id"])
	assert.InDelta(t, 35.6895, created.Device["latitude"], 1e-9)
	assert.Equal(t, "2026-03-14T09:30:00Z", created.Device["lastUpdatedAt"])
	assert.NotEmpty(t, created.AccessToken)

	w = do(t, r, http.MethodGet, "/devices", "user-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// other users see an empty list, not this user's device
	w = do(t, r, http.MethodGet, "/devices", "user-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
		"deviceId": "device-1", "token": "", "latitude": 0, "longitude": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
		"deviceId": "device-1", "token": "push-token-1", "latitude": 95, "longitude": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateLocationOwnership(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
		"deviceId": "device-1", "token": "push-token-1", "latitude": 35.6895, "longitude": 139.6917,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPut, "/devices/device-1/location", "user-1", map[string]any{
		"latitude": 35.7, "longitude": 139.7,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var updated map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.InDelta(t, 35.7, updated["latitude"], 1e-9)

	w = do(t, r, http.MethodPut, "/devices/device-1/location", "user-2", map[string]any{
		"latitude": 0, "longitude": 0,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDeviceBoundTokenScope(t *testing.T) {
	r := newTestRouter(t)

	for _, id := range []string{"device-1", "device-2"} {
		w := do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
			"deviceId": id, "token": "push-" + id, "latitude": 35.6895, "longitude": 139.6917,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	// a token bound to device-2 cannot steer device-1
	w := do(t, r, http.MethodPut, "/devices/device-1/location", "user-1#device-2", map[string]any{
		"latitude": 35.7, "longitude": 139.7,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPut, "/devices/device-1/location", "user-1#device-1", map[string]any{
		"latitude": 35.7, "longitude": 139.7,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// a user-scoped registration token still manages all of its devices
	w = do(t, r, http.MethodDelete, "/devices/device-2", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRenewTokenAndDelete(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/devices", "user-1", map[string]any{
		"deviceId": "device-1", "token": "push-token-1", "latitude": 35.6895, "longitude": 139.6917,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, r, http.MethodPut, "/devices/device-1/token", "user-1", map[string]any{
		"token": "push-token-2",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, "/devices/device-1", "user-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodDelete, "/devices/device-1", "user-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequiresAuth(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/devices", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
