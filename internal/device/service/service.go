// Package service manages device registration and location reporting. The
// device index is what candidate discovery searches, so location updates
// are the hottest write path in the system.
package service

import (
	"context"
	"errors"
	"log/slog"

	"nearhelp/internal/audit"
	"nearhelp/internal/device"
	"nearhelp/internal/platform/metrics"
	"nearhelp/pkg/clock"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	"nearhelp/pkg/platform/sentinel"
)

type Store interface {
	Save(ctx context.Context, d device.Device) error
	FindByID(ctx context.Context, id domain.DeviceID) (device.Device, error)
	FindByOwner(ctx context.Context, ownerID domain.UserID) (device.Devices, error)
	Delete(ctx context.Context, id domain.DeviceID) error
}

// AuditPublisher records device lifecycle events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Service orchestrates device lifecycle operations.
type Service struct {
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   AuditPublisher
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

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
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

// Register creates or replaces a device record for its owner.
func (s *Service) Register(ctx context.Context, id domain.DeviceID, ownerID domain.UserID, token device.Token, loc domain.Location) (device.Device, error) {
	d, err := device.New(id, ownerID, token, loc, s.clock.Now())
	if err != nil {
		return device.Device{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid device")
	}
	if err := s.store.Save(ctx, d); err != nil {
		return device.Device{}, dErrors.Wrap(err, dErrors.CodeInternal, "save device")
	}
	if s.metrics != nil {
		s.metrics.IncrementDevicesRegistered()
	}
	s.logger.InfoContext(ctx, "device registered", "device_id", id, "owner_id", ownerID)
	s.emitAudit(ctx, audit.Event{
		UserID: ownerID,
		Action: audit.ActionDeviceRegistered,
		Detail: string(id),
	})
	return d, nil
}

// UpdateLocation moves a device. The owner check keeps one user from
// steering another user's device around the index.
func (s *Service) UpdateLocation(ctx context.Context, id domain.DeviceID, callerID domain.UserID, loc domain.Location) (device.Device, error) {
	d, err := s.load(ctx, id, callerID)
	if err != nil {
		return device.Device{}, err
	}
	moved := d.MoveTo(loc, s.clock.Now())
	if err := s.store.Save(ctx, moved); err != nil {
		return device.Device{}, dErrors.Wrap(err, dErrors.CodeInternal, "save device location")
	}
	return moved, nil
}

// RenewToken swaps the push token, typically after the push provider
// rotated it.
func (s *Service) RenewToken(ctx context.Context, id domain.DeviceID, callerID domain.UserID, token device.Token) (device.Device, error) {
	d, err := s.load(ctx, id, callerID)
	if err != nil {
		return device.Device{}, err
	}
	renewed := d.WithToken(token, s.clock.Now())
	if err := s.store.Save(ctx, renewed); err != nil {
		return device.Device{}, dErrors.Wrap(err, dErrors.CodeInternal, "save device token")
	}
	return renewed, nil
}

// Delete removes a device from the index.
func (s *Service) Delete(ctx context.Context, id domain.DeviceID, callerID domain.UserID) error {
	if _, err := s.load(ctx, id, callerID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete device")
	}
	s.logger.InfoContext(ctx, "device deleted", "device_id", id, "owner_id", callerID)
	s.emitAudit(ctx, audit.Event{
		UserID: callerID,
		Action: audit.ActionDeviceDeleted,
		Detail: string(id),
	})
	return nil
}

// ListByOwner returns the caller's devices.
func (s *Service) ListByOwner(ctx context.Context, ownerID domain.UserID) (device.Devices, error) {
	ds, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list devices")
	}
	return ds, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit != nil {
		s.audit.Emit(ctx, event)
	}
}

func (s *Service) load(ctx context.Context, id domain.DeviceID, callerID domain.UserID) (device.Device, error) {
	d, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return device.Device{}, dErrors.Wrap(err, dErrors.CodeNotFound, "device not found")
		}
		return device.Device{}, dErrors.Wrap(err, dErrors.CodeInternal, "load device")
	}
	if d.OwnerID != callerID {
		return device.Device{}, dErrors.New(dErrors.CodeUnauthorized, "device belongs to another user")
	}
	return d, nil
}
