package service

import (
	"context"
	"errors"
	"log/slog"

	"nearhelp/internal/platform/metrics"
	"nearhelp/internal/user"
	"nearhelp/pkg/clock"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/sentinel"
)

type Store interface {
	Save(ctx context.Context, u user.User) error
	FindByID(ctx context.Context, id domain.UserID) (user.User, error)
}

// Service keeps profile management out of handlers and domain logic thin.
type Service struct {
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  clock.System{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a profile; supporters stay discoverable only while
// AvailableForHelp holds.
func (s *Service) Register(ctx context.Context, id domain.UserID, nickname, iconURL, physicalDescription string, available bool) (user.User, error) {
	u, err := user.New(id, nickname, iconURL, physicalDescription, available, s.clock.Now())
	if err != nil {
		return user.User{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid user")
	}
	if err := s.store.Save(ctx, u); err != nil {
		return user.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "save user")
	}
	if s.metrics != nil {
		s.metrics.IncrementUsersRegistered()
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", id)
	return u, nil
}

// Get loads one profile.
func (s *Service) Get(ctx context.Context, id domain.UserID) (user.User, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return user.User{}, dErrors.Wrap(err, dErrors.CodeNotFound, "user not found")
		}
		return user.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	return u, nil
}

// SetAvailability flips whether the user can be drafted as a supporter.
func (s *Service) SetAvailability(ctx context.Context, id domain.UserID, available bool) (user.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	u.AvailableForHelp = available
	u.UpdatedAt = s.clock.Now()
	if err := s.store.Save(ctx, u); err != nil {
		return user.User{}, dErrors.Wrap(err, dErrors.CodeInternal, "save user availability")
	}
	return u, nil
}
