// Package store provides device persistence adapters. The production adapter
// keeps device locations in a Redis GEO index; the memory adapter answers the
// same nearby queries with a haversine scan.
package store

import (
	"context"
	"fmt"
	"sync"

	"nearhelp/internal/device"
	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Memory is an in-process device store for tests and development runs.
type Memory struct {
	mu      sync.RWMutex
	devices map[domain.DeviceID]device.Device
}

func NewMemory() *Memory {
	return &Memory{devices: make(map[domain.DeviceID]device.Device)}
}

func (m *Memory) Save(_ context.Context, d device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
	return nil
}

func (m *Memory) FindByID(_ context.Context, id domain.DeviceID) (device.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.devices[id]
	if !ok {
		return device.Device{}, fmt.Errorf("%w: device %s", sentinel.ErrNotFound, id)
	}
	return d, nil
}

// FindByOwner returns every device registered by the given user.
func (m *Memory) FindByOwner(_ context.Context, ownerID domain.UserID) (device.Devices, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out device.Devices
	for _, d := range m.devices {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, id domain.DeviceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return fmt.Errorf("%w: device %s", sentinel.ErrNotFound, id)
	}
	delete(m.devices, id)
	return nil
}

// FindAvailableNearby returns devices within radiusMeters of the location.
func (m *Memory) FindAvailableNearby(_ context.Context, loc domain.Location, radiusMeters float64) (device.Devices, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out device.Devices
	for _, d := range m.devices {
		if loc.DistanceMeters(d.Location) <= radiusMeters {
			out = append(out, d)
		}
	}
	return out, nil
}
