package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	devicehandler "nearhelp/internal/device/handler"
	deviceservice "nearhelp/internal/device/service"
	devicestore "nearhelp/internal/device/store"
	hrhandler "nearhelp/internal/helprequest/handler"
	hrservice "nearhelp/internal/helprequest/service"
	hrstore "nearhelp/internal/helprequest/store"
	jwttoken "nearhelp/internal/jwt_token"
	"nearhelp/internal/notify"
	"nearhelp/internal/schedule"
	userhandler "nearhelp/internal/user/handler"
	userservice "nearhelp/internal/user/service"
	userstore "nearhelp/internal/user/store"
	"nearhelp/pkg/testutil"
)

// newAppRouter mirrors run()'s handler wiring: all three contexts register
// on one shared router.
func newAppRouter(t *testing.T) chi.Router {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := jwttoken.NewJWTService("test-signing-key", tokenIssuer, tokenAudience)
	validator := jwttoken.NewJWTServiceAdapter(tokens)

	userStore := userstore.NewMemory()
	deviceStore := devicestore.NewMemory()

	userSvc := userservice.New(userStore, userservice.WithLogger(log))
	deviceSvc := deviceservice.New(deviceStore, deviceservice.WithLogger(log))
	helpSvc := hrservice.New(hrstore.NewMemory(), deviceStore, userStore,
		notify.New(notify.NewGateway("http://push.invalid", "test-key")),
		schedule.NewManual(),
		hrservice.WithLogger(log),
	)

	router := chi.NewRouter()
	userhandler.New(userSvc, tokens, log, nil, validator).Register(router)
	devicehandler.New(deviceSvc, tokens, log, nil, validator).Register(router)
	hrhandler.New(helpSvc, log, nil, validator).Register(router)
	return router
}

func TestAllHandlersShareOneRouter(t *testing.T) {
	var router chi.Router
	require.NotPanics(t, func() { router = newAppRouter(t) })

	// registration issues the token the other contexts' routes require
	w := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/users", map[string]any{
		"userId": "user-1", "nickname": "aoi", "availableForHelp": true,
	}))
	require.Equal(t, http.StatusCreated, w.Code)

	var registered struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	require.NotEmpty(t, registered.AccessToken)

	req := testutil.NewJSONRequest(t, http.MethodGet, "/devices", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w = testutil.DoRequest(router, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// help-request routes are reachable and guarded on the same router
	w = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/help-requests", map[string]any{
		"latitude": 35.6895, "longitude": 139.6917,
	}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
