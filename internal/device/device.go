// Package device models registered supporter/requester devices. A user may
// register several devices; matching dedups to the freshest one per owner.
package device

import (
	"fmt"
	"time"

	"nearhelp/pkg/domain"
)

// Token is a push-delivery token for one device. Opaque, non-empty.
type Token string

// ParseToken validates a push token.
func ParseToken(s string) (Token, error) {
	if s == "" {
		return "", fmt.Errorf("device token must not be empty")
	}
	return Token(s), nil
}

func (t Token) String() string { return string(t) }

// Device is a registered device with its owner, push token, and last known
// location. LastUpdatedAt picks the freshest device per owner when deduping.
type Device struct {
	ID            domain.DeviceID
	OwnerID       domain.UserID
	Token         Token
	Location      domain.Location
	LastUpdatedAt time.Time
}

// New validates and builds a device.
func New(id domain.DeviceID, ownerID domain.UserID, token Token, loc domain.Location, now time.Time) (Device, error) {
	if id.IsZero() {
		return Device{}, fmt.Errorf("device requires an id")
	}
	if ownerID.IsZero() {
		return Device{}, fmt.Errorf("device requires an owner")
	}
	if token == "" {
		return Device{}, fmt.Errorf("device requires a push token")
	}
	return Device{ID: id, OwnerID: ownerID, Token: token, Location: loc, LastUpdatedAt: now}, nil
}

// MoveTo returns a copy at the new location with a refreshed timestamp.
func (d Device) MoveTo(loc domain.Location, now time.Time) Device {
	d.Location = loc
	d.LastUpdatedAt = now
	return d
}

// WithToken returns a copy carrying a renewed push token.
func (d Device) WithToken(token Token, now time.Time) Device {
	d.Token = token
	d.LastUpdatedAt = now
	return d
}

// Devices is an ordered set of devices.
type Devices []Device

// UniqueLatest keeps one device per owner, preferring the most recently
// updated. Order follows first appearance of each owner.
func (ds Devices) UniqueLatest() Devices {
	latest := make(map[domain.UserID]int, len(ds))
	var out Devices
	for _, d := range ds {
		i, seen := latest[d.OwnerID]
		if !seen {
			latest[d.OwnerID] = len(out)
			out = append(out, d)
			continue
		}
		if d.LastUpdatedAt.After(out[i].LastUpdatedAt) {
			out[i] = d
		}
	}
	return out
}

// OwnerIDs lists the owners of the devices, in order.
func (ds Devices) OwnerIDs() []domain.UserID {
	out := make([]domain.UserID, len(ds))
	for i, d := range ds {
		out[i] = d.OwnerID
	}
	return out
}

// Tokens lists the push tokens of the devices, in order.
func (ds Devices) Tokens() []Token {
	out := make([]Token, len(ds))
	for i, d := range ds {
		out[i] = d.Token
	}
	return out
}
