// Package handler exposes user registration and profile endpoints.
// Registration is the only unauthenticated route: it issues the access
// token every other endpoint requires.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	jwttoken "nearhelp/internal/jwt_token"
	"nearhelp/internal/platform/metrics"
	"nearhelp/internal/platform/middleware"
	"nearhelp/internal/user"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/httputil"
)

// accessTokenTTL bounds how long a registration token stays valid.
const accessTokenTTL = 24 * time.Hour

// Service defines the interface for user operations.
type Service interface {
	Register(ctx context.Context, id domain.UserID, nickname, iconURL, physicalDescription string, available bool) (user.User, error)
	Get(ctx context.Context, id domain.UserID) (user.User, error)
	SetAvailability(ctx context.Context, id domain.UserID, available bool) (user.User, error)
}

// Handler handles user endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	tokens       *jwttoken.JWTService
	jwtValidator middleware.JWTValidator
}

// New creates a new user Handler.
func New(service Service, tokens *jwttoken.JWTService, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		tokens:       tokens,
		jwtValidator: jwtValidator,
	}
}

// Register adds the user routes to the shared router. Routes are grouped
// rather than mounted so several handlers can share one parent router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(15 * time.Second))
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.LatencyMiddleware(h.metrics))

		router.Post("/users", h.handleRegister)

		router.Group(func(authed chi.Router) {
			authed.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
			authed.Get("/users/me", h.handleGetMe)
			authed.Put("/users/me/availability", h.handleSetAvailability)
		})
	})
}

type registerRequest struct {
	UserID              string `json:"userId"`
	Nickname            string `json:"nickname"`
	IconURL             string `json:"iconUrl"`
	PhysicalDescription string `json:"physicalDescription"`
	AvailableForHelp    bool   `json:"availableForHelp"`
}

type userResponse struct {
	ID                  string `json:"id"`
	Nickname            string `json:"nickname"`
	IconURL             string `json:"iconUrl,omitempty"`
	PhysicalDescription string `json:"physicalDescription,omitempty"`
	AvailableForHelp    bool   `json:"availableForHelp"`
}

type registerResponse struct {
	User        userResponse `json:"user"`
	AccessToken string       `json:"accessToken"`
}

func toResponse(u user.User) userResponse {
	return userResponse{
		ID:                  u.ID.String(),
		Nickname:            u.Nickname,
		IconURL:             u.IconURL,
		PhysicalDescription: u.PhysicalDescription,
		AvailableForHelp:    u.AvailableForHelp,
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	id, err := domain.ParseUserID(req.UserID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	u, err := h.service.Register(ctx, id, req.Nickname, req.IconURL, req.PhysicalDescription, req.AvailableForHelp)
	if err != nil {
		h.logger.WarnContext(ctx, "register user",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.tokens.GenerateAccessToken(u.ID, "", accessTokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "issue access token",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue access token"))
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, registerResponse{
		User:        toResponse(u),
		AccessToken: token,
	})
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	callerID, err := domain.ParseUserID(middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	u, err := h.service.Get(r.Context(), callerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(u))
}

type availabilityRequest struct {
	AvailableForHelp bool `json:"availableForHelp"`
}

func (h *Handler) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	callerID, err := domain.ParseUserID(middleware.GetUserID(r.Context()))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	u, err := h.service.SetAvailability(r.Context(), callerID, req.AvailableForHelp)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(u))
}
