// Package handler exposes device registration and location reporting over
// HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nearhelp/internal/device"
	jwttoken "nearhelp/internal/jwt_token"
	"nearhelp/internal/platform/metrics"
	"nearhelp/internal/platform/middleware"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/httputil"
)

// Service defines the interface for device operations.
type Service interface {
	Register(ctx context.Context, id domain.DeviceID, ownerID domain.UserID, token device.Token, loc domain.Location) (device.Device, error)
	UpdateLocation(ctx context.Context, id domain.DeviceID, callerID domain.UserID, loc domain.Location) (device.Device, error)
	RenewToken(ctx context.Context, id domain.DeviceID, callerID domain.UserID, token device.Token) (device.Device, error)
	Delete(ctx context.Context, id domain.DeviceID, callerID domain.UserID) error
	ListByOwner(ctx context.Context, ownerID domain.UserID) (device.Devices, error)
}

// accessTokenTTL bounds how long a device-bound token stays valid.
const accessTokenTTL = 24 * time.Hour

// Handler handles device endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	tokens       *jwttoken.JWTService
	jwtValidator middleware.JWTValidator
}

// New creates a new device Handler.
func New(service Service, tokens *jwttoken.JWTService, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		tokens:       tokens,
		jwtValidator: jwtValidator,
	}
}

// Register adds the device routes to the shared router. Routes are grouped
// rather than mounted so several handlers can share one parent router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(15 * time.Second))
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.LatencyMiddleware(h.metrics))
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		router.Post("/devices", h.handleRegister)
		router.Get("/devices", h.handleList)
		router.Put("/devices/{deviceID}/location", h.handleUpdateLocation)
		router.Put("/devices/{deviceID}/token", h.handleRenewToken)
		router.Delete("/devices/{deviceID}", h.handleDelete)
	})
}

type registerRequest struct {
	DeviceID  string  `json:"deviceId"`
	Token     string  `json:"token"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type deviceResponse struct {
	ID            string  `json:"id"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	LastUpdatedAt string  `json:"lastUpdatedAt"`
}

type registerResponse struct {
	Device      deviceResponse `json:"device"`
	AccessToken string         `json:"accessToken"`
}

func toResponse(d device.Device) deviceResponse {
	return deviceResponse{
		ID:            d.ID.String(),
		Latitude:      d.Location.Latitude(),
		Longitude:     d.Location.Longitude(),
		LastUpdatedAt: d.LastUpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	userID, err := domain.ParseUserID(middleware.GetUserID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.DeviceID, bool) {
	id, err := domain.ParseDeviceID(chi.URLParam(r, "deviceID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid device id"))
		return "", false
	}
	// A registration token is user-scoped; a token minted at device
	// registration is bound to that device and may not mutate another one.
	if bound := middleware.GetDeviceID(r.Context()); bound != "" && bound != id.String() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "access token is bound to another device"))
		return "", false
	}
	return id, true
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	id, err := domain.ParseDeviceID(req.DeviceID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid device id"))
		return
	}
	token, err := device.ParseToken(req.Token)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid push token"))
		return
	}
	loc, err := domain.NewLocation(req.Latitude, req.Longitude)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	d, err := h.service.Register(r.Context(), id, callerID, token, loc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// Hand back a token bound to the new device so the app can drop its
	// user-scoped registration token.
	accessToken, err := h.tokens.GenerateAccessToken(callerID, d.ID, accessTokenTTL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue device access token",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue access token"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		Device:      toResponse(d),
		AccessToken: accessToken,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	ds, err := h.service.ListByOwner(r.Context(), callerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := make([]deviceResponse, 0, len(ds))
	for _, d := range ds {
		resp = append(resp, toResponse(d))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (h *Handler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	loc, err := domain.NewLocation(req.Latitude, req.Longitude)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	d, err := h.service.UpdateLocation(r.Context(), id, callerID, loc)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(d))
}

type tokenRequest struct {
	Token string `json:"token"`
}

func (h *Handler) handleRenewToken(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	token, err := device.ParseToken(req.Token)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid push token"))
		return
	}

	d, err := h.service.RenewToken(r.Context(), id, callerID, token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(d))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, callerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
