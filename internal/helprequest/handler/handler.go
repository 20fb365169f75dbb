// Package handler exposes the help-request matching flow over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nearhelp/internal/helprequest"
	"nearhelp/internal/platform/metrics"
	"nearhelp/internal/platform/middleware"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/httputil"
)

// Service defines the interface for help-request operations.
type Service interface {
	Create(ctx context.Context, requesterID domain.UserID, loc domain.Location) (helprequest.HelpRequest, error)
	Get(ctx context.Context, id domain.HelpRequestID) (helprequest.HelpRequest, error)
	HandleVerificationResult(ctx context.Context, id domain.HelpRequestID, verificationID domain.VerificationID, supporterID domain.UserID, succeeded bool) error
	OnVerificationTimeout(ctx context.Context, id domain.HelpRequestID) error
	RecordResponse(ctx context.Context, id domain.HelpRequestID, supporterID domain.UserID, accepted bool) error
	Complete(ctx context.Context, id domain.HelpRequestID, callerID domain.UserID) error
}

// Handler handles help-request endpoints.
type Handler struct {
	logger       *slog.Logger
	service      Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
}

// New creates a new help-request Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		metrics:      metrics,
		jwtValidator: jwtValidator,
	}
}

// Register adds the help-request routes to the shared router. Routes are
// grouped rather than mounted so several handlers can share one parent
// router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.ContentTypeJSON)
		router.Use(middleware.LatencyMiddleware(h.metrics))
		router.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
		router.Post("/help-requests", h.handleCreate)
		router.Get("/help-requests/{helpRequestID}", h.handleGet)
		router.Post("/help-requests/{helpRequestID}/verification-result", h.handleVerificationResult)
		router.Post("/help-requests/{helpRequestID}/respond", h.handleRespond)
		router.Post("/help-requests/{helpRequestID}/complete", h.handleComplete)
		router.Post("/internal/help-requests/{helpRequestID}/timeout", h.handleTimeout)
	})
}

type createRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type candidateResponse struct {
	UserID              string `json:"userId"`
	Nickname            string `json:"nickname"`
	IconURL             string `json:"iconUrl,omitempty"`
	PhysicalDescription string `json:"physicalDescription,omitempty"`
	Status              string `json:"status"`
}

type helpRequestResponse struct {
	ID                      string              `json:"id"`
	Status                  string              `json:"status"`
	ProximityVerificationID string              `json:"proximityVerificationId"`
	ExpiredAt               string              `json:"expiredAt,omitempty"`
	Candidates              []candidateResponse `json:"candidates"`
	CreatedAt               string              `json:"createdAt"`
	UpdatedAt               string              `json:"updatedAt"`
}

func toResponse(hr helprequest.HelpRequest) helpRequestResponse {
	resp := helpRequestResponse{
		ID:                      hr.ID.String(),
		Status:                  string(hr.Status),
		ProximityVerificationID: hr.VerificationID.String(),
		Candidates:              make([]candidateResponse, 0, hr.Candidates.Len()),
		CreatedAt:               hr.CreatedAt.Format(time.RFC3339),
		UpdatedAt:               hr.UpdatedAt.Format(time.RFC3339),
	}
	if !hr.VerificationDeadline.IsZero() {
		resp.ExpiredAt = hr.VerificationDeadline.Format(time.RFC3339)
	}
	for _, c := range hr.Candidates.All() {
		resp.Candidates = append(resp.Candidates, candidateResponse{
			UserID:              c.Info.ID.String(),
			Nickname:            c.Info.Nickname,
			IconURL:             c.Info.IconURL,
			PhysicalDescription: c.Info.PhysicalDescription,
			Status:              string(c.Status),
		})
	}
	return resp
}

// callerID pulls the authenticated user from the context; RequireAuth has
// already run for every route in this handler.
func (h *Handler) callerID(w http.ResponseWriter, r *http.Request) (domain.UserID, bool) {
	raw := middleware.GetUserID(r.Context())
	userID, err := domain.ParseUserID(raw)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "userID missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(r.Context()),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return userID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (domain.HelpRequestID, bool) {
	id, err := domain.ParseHelpRequestID(chi.URLParam(r, "helpRequestID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid help request id"))
		return "", false
	}
	return id, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	loc, err := domain.NewLocation(req.Latitude, req.Longitude)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	hr, err := h.service.Create(ctx, callerID, loc)
	if err != nil {
		h.logger.WarnContext(ctx, "create help request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toResponse(hr))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	hr, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if hr.RequesterID != callerID && !hr.Candidates.Exists(callerID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "help request not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResponse(hr))
}

type verificationResultRequest struct {
	ProximityVerificationID string `json:"proximityVerificationId"`
	Succeeded               bool   `json:"succeeded"`
}

func (h *Handler) handleVerificationResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req verificationResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	verificationID, err := domain.ParseVerificationID(req.ProximityVerificationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proximity verification id"))
		return
	}

	if err := h.service.HandleVerificationResult(ctx, id, verificationID, callerID, req.Succeeded); err != nil {
		h.logger.WarnContext(ctx, "handle verification result",
			"request_id", middleware.GetRequestID(ctx),
			"help_request_id", id,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type respondRequest struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.service.RecordResponse(r.Context(), id, callerID, req.Accepted); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Complete(r.Context(), id, callerID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTimeout forces the deadline resolution. It backs operational
// recovery when a timer was lost, for example across a process restart.
func (h *Handler) handleTimeout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.OnVerificationTimeout(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
