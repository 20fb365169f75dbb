//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nearhelp/internal/device"
	"nearhelp/internal/device/store"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
	"nearhelp/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) newDevice(id domain.DeviceID, owner domain.UserID, lat, lng float64) device.Device {
	loc, err := domain.NewLocation(lat, lng)
	s.Require().NoError(err)
	d, err := device.New(id, owner, device.Token("token-"+id.String()), loc,
		time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	s.Require().NoError(err)
	return d
}

func (s *RedisStoreSuite) TestSaveAndFind() {
	ctx := context.Background()
	d := s.newDevice("device-1", "user-1", 35.6895, 139.6917)
	s.Require().NoError(s.store.Save(ctx, d))

	loaded, err := s.store.FindByID(ctx, "device-1")
	s.Require().NoError(err)
	s.Equal(d.OwnerID, loaded.OwnerID)
	s.Equal(d.Token, loaded.Token)
	s.InDelta(d.Location.Latitude(), loaded.Location.Latitude(), 1e-6)
	s.True(d.LastUpdatedAt.Equal(loaded.LastUpdatedAt))
}

func (s *RedisStoreSuite) TestFindUnknownIsNotFound() {
	_, err := s.store.FindByID(context.Background(), "device-missing")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *RedisStoreSuite) TestFindByOwner() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-1", "user-1", 35.6895, 139.6917)))
	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-2", "user-1", 35.6896, 139.6918)))
	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-3", "user-2", 35.6897, 139.6919)))

	ds, err := s.store.FindByOwner(ctx, "user-1")
	s.Require().NoError(err)
	s.Len(ds, 2)
}

func (s *RedisStoreSuite) TestFindAvailableNearby() {
	ctx := context.Background()
	center, err := domain.NewLocation(35.6895, 139.6917)
	s.Require().NoError(err)

	// ~130m away
	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-near", "user-1", 35.6905, 139.6923)))
	// ~55km away
	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-far", "user-2", 36.2, 139.6917)))

	ds, err := s.store.FindAvailableNearby(ctx, center, 1000)
	s.Require().NoError(err)
	s.Require().Len(ds, 1)
	s.Equal(domain.DeviceID("device-near"), ds[0].ID)
}

func (s *RedisStoreSuite) TestSaveMovesGeoEntry() {
	ctx := context.Background()
	center, err := domain.NewLocation(35.6895, 139.6917)
	s.Require().NoError(err)

	d := s.newDevice("device-1", "user-1", 35.6895, 139.6917)
	s.Require().NoError(s.store.Save(ctx, d))

	// move the device out of range and save again
	far, err := domain.NewLocation(36.2, 139.6917)
	s.Require().NoError(err)
	d.Location = far
	s.Require().NoError(s.store.Save(ctx, d))

	ds, err := s.store.FindAvailableNearby(ctx, center, 1000)
	s.Require().NoError(err)
	s.Empty(ds)
}

func (s *RedisStoreSuite) TestDeleteRemovesAllIndexes() {
	ctx := context.Background()
	center, err := domain.NewLocation(35.6895, 139.6917)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Save(ctx, s.newDevice("device-1", "user-1", 35.6895, 139.6917)))
	s.Require().NoError(s.store.Delete(ctx, "device-1"))

	_, err = s.store.FindByID(ctx, "device-1")
	s.True(errors.Is(err, sentinel.ErrNotFound))

	ds, err := s.store.FindByOwner(ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(ds)

	ds, err = s.store.FindAvailableNearby(ctx, center, 1000)
	s.Require().NoError(err)
	s.Empty(ds)

	s.True(errors.Is(s.store.Delete(ctx, "device-1"), sentinel.ErrNotFound))
}
