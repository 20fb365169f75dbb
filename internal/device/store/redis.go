package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"nearhelp/internal/device"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

const (
	deviceKeyPrefix = "device:"
	deviceGeoKey    = "devices:geo"
	ownerKeyPrefix  = "device:owner:"
)

// Redis keeps device records in hashes and their locations in a GEO index,
// so the nearby query is a single GEOSEARCH instead of a table scan.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Save(ctx context.Context, d device.Device) error {
	key := deviceKeyPrefix + d.ID.String()
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"owner_id":   d.OwnerID.String(),
			"token":      d.Token.String(),
			"latitude":   strconv.FormatFloat(d.Location.Latitude(), 'f', -1, 64),
			"longitude":  strconv.FormatFloat(d.Location.Longitude(), 'f', -1, 64),
			"updated_at": d.LastUpdatedAt.Format(time.RFC3339Nano),
		})
		pipe.GeoAdd(ctx, deviceGeoKey, &redis.GeoLocation{
			Name:      d.ID.String(),
			Latitude:  d.Location.Latitude(),
			Longitude: d.Location.Longitude(),
		})
		pipe.SAdd(ctx, ownerKeyPrefix+d.OwnerID.String(), d.ID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("save device %s: %w", d.ID, err)
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, id domain.DeviceID) (device.Device, error) {
	fields, err := s.client.HGetAll(ctx, deviceKeyPrefix+id.String()).Result()
	if err != nil {
		return device.Device{}, fmt.Errorf("load device %s: %w", id, err)
	}
	if len(fields) == 0 {
		return device.Device{}, fmt.Errorf("%w: device %s", sentinel.ErrNotFound, id)
	}
	return deviceFromHash(id, fields)
}

func (s *Redis) FindByOwner(ctx context.Context, ownerID domain.UserID) (device.Devices, error) {
	ids, err := s.client.SMembers(ctx, ownerKeyPrefix+ownerID.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("list devices of %s: %w", ownerID, err)
	}
	out := make(device.Devices, 0, len(ids))
	for _, raw := range ids {
		d, err := s.FindByID(ctx, domain.DeviceID(raw))
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *Redis) Delete(ctx context.Context, id domain.DeviceID) error {
	d, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, deviceKeyPrefix+id.String())
		pipe.ZRem(ctx, deviceGeoKey, id.String())
		pipe.SRem(ctx, ownerKeyPrefix+d.OwnerID.String(), id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete device %s: %w", id, err)
	}
	return nil
}

// FindAvailableNearby runs a GEOSEARCH around the location and hydrates the
// matching device records.
func (s *Redis) FindAvailableNearby(ctx context.Context, loc domain.Location, radiusMeters float64) (device.Devices, error) {
	hits, err := s.client.GeoSearch(ctx, deviceGeoKey, &redis.GeoSearchQuery{
		Latitude:   loc.Latitude(),
		Longitude:  loc.Longitude(),
		Radius:     radiusMeters,
		RadiusUnit: "m",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo search: %w", err)
	}

	out := make(device.Devices, 0, len(hits))
	for _, name := range hits {
		d, err := s.FindByID(ctx, domain.DeviceID(name))
		if errors.Is(err, sentinel.ErrNotFound) {
			// GEO index can briefly outlive a deleted hash; skip strays.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func deviceFromHash(id domain.DeviceID, fields map[string]string) (device.Device, error) {
	lat, err := strconv.ParseFloat(fields["latitude"], 64)
	if err != nil {
		return device.Device{}, fmt.Errorf("device %s latitude: %w", id, err)
	}
	lng, err := strconv.ParseFloat(fields["longitude"], 64)
	if err != nil {
		return device.Device{}, fmt.Errorf("device %s longitude: %w", id, err)
	}
	loc, err := domain.NewLocation(lat, lng)
	if err != nil {
		return device.Device{}, fmt.Errorf("device %s location: %w", id, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return device.Device{}, fmt.Errorf("device %s updated_at: %w", id, err)
	}
	return device.Device{
		ID:            id,
		OwnerID:       domain.UserID(fields["owner_id"]),
		Token:         device.Token(fields["token"]),
		Location:      loc,
		LastUpdatedAt: updatedAt,
	}, nil
}
