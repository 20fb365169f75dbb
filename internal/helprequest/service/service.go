// Package service orchestrates the help-request matching flow: candidate
// discovery, the proximity-verification window, and match delivery.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"nearhelp/internal/audit"
	"nearhelp/internal/device"
	"nearhelp/internal/helprequest"
	"nearhelp/internal/helprequest/metrics"
	"nearhelp/internal/user"
	"nearhelp/pkg/clock"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/sentinel"
)

// searchRadiusMeters bounds candidate discovery around the requester.
const searchRadiusMeters = 1000

// maxSaveRetries caps the reload-reapply loop when concurrent writers race
// on the same help request.
const maxSaveRetries = 3

type Store interface {
	Add(ctx context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error)
	FindByID(ctx context.Context, id domain.HelpRequestID) (helprequest.HelpRequest, error)
	Save(ctx context.Context, hr helprequest.HelpRequest) (helprequest.HelpRequest, error)
}

type DeviceStore interface {
	FindByID(ctx context.Context, id domain.DeviceID) (device.Device, error)
	FindByOwner(ctx context.Context, ownerID domain.UserID) (device.Devices, error)
	FindAvailableNearby(ctx context.Context, loc domain.Location, radiusMeters float64) (device.Devices, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id domain.UserID) (user.User, error)
	FindManyByIDs(ctx context.Context, ids []domain.UserID) ([]user.User, error)
}

type Notifier interface {
	BroadcastVerificationChallenge(ctx context.Context, tokens []device.Token, helpRequestID domain.HelpRequestID, verificationID domain.VerificationID, expiresAt time.Time) error
	NotifySupporterOfMatch(ctx context.Context, token device.Token, requester helprequest.UserInfo) error
	NotifyRequesterOfMatch(ctx context.Context, token device.Token, candidates []helprequest.UserInfo) error
}

// Scheduler defers the verification-timeout callback.
type Scheduler interface {
	At(key string, when time.Time, fn func(context.Context))
	Cancel(key string) bool
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates help-request use cases over the domain aggregate.
type Service struct {
	store     Store
	devices   DeviceStore
	users     UserStore
	notifier  Notifier
	scheduler Scheduler
	clock     clock.Clock
	logger    *slog.Logger
	audit     AuditPublisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(store Store, devices DeviceStore, users UserStore, notifier Notifier, scheduler Scheduler, opts ...Option) *Service {
	s := &Service{
		store:     store,
		devices:   devices,
		users:     users,
		notifier:  notifier,
		scheduler: scheduler,
		clock:     clock.System{},
		logger:    slog.Default(),
		tracer:    otel.Tracer("nearhelp/helprequest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get loads one help request.
func (s *Service) Get(ctx context.Context, id domain.HelpRequestID) (helprequest.HelpRequest, error) {
	hr, err := s.store.FindByID(ctx, id)
	if err != nil {
		return helprequest.HelpRequest{}, storeError(err, "load help request")
	}
	return hr, nil
}

// saveWithRetry persists via apply-then-save under optimistic concurrency:
// on a version conflict the request is reloaded and apply runs again against
// the fresh state. Apply must therefore be a pure function of its input.
func (s *Service) saveWithRetry(ctx context.Context, id domain.HelpRequestID, apply func(helprequest.HelpRequest) (helprequest.HelpRequest, error)) (helprequest.HelpRequest, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		hr, err := s.store.FindByID(ctx, id)
		if err != nil {
			return helprequest.HelpRequest{}, storeError(err, "load help request")
		}
		next, err := apply(hr)
		if err != nil {
			return helprequest.HelpRequest{}, err
		}
		saved, err := s.store.Save(ctx, next)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return helprequest.HelpRequest{}, storeError(err, "save help request")
		}
		lastErr = err
		if s.metrics != nil {
			s.metrics.SaveConflicts.Inc()
		}
	}
	return helprequest.HelpRequest{}, dErrors.Wrap(lastErr, dErrors.CodeConflict, "help request kept changing concurrently")
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Emit(ctx, event)
	}
}

// storeError maps storage sentinels onto transport-facing codes.
func storeError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "help request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

// domainError maps aggregate guard violations onto transport-facing codes.
func domainError(err error) error {
	if errors.Is(err, sentinel.ErrInvalidState) {
		return dErrors.Wrap(err, dErrors.CodeInvalidState, "help request is not in a state that allows this operation")
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "candidate not found on this help request")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "help request transition failed")
}
