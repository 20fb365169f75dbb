package domain

import (
	"fmt"
	"math"
)

const geohashPrecision = 10

var geohashBase32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

// Location is an immutable latitude/longitude pair. Equality is by
// coordinates; the geohash is derived, never stored on the value.
type Location struct {
	lat float64
	lng float64
}

// NewLocation validates coordinate ranges.
func NewLocation(lat, lng float64) (Location, error) {
	if lat < -90 || lat > 90 {
		return Location{}, fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return Location{}, fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return Location{lat: lat, lng: lng}, nil
}

func (l Location) Latitude() float64  { return l.lat }
func (l Location) Longitude() float64 { return l.lng }

func (l Location) Equals(other Location) bool {
	return l.lat == other.lat && l.lng == other.lng
}

// Geohash encodes the location for spatial range queries and persistence.
func (l Location) Geohash() string {
	latRange := [2]float64{-90, 90}
	lngRange := [2]float64{-180, 180}

	hash := make([]byte, 0, geohashPrecision)
	var bits, ch int
	even := true

	for len(hash) < geohashPrecision {
		if even {
			mid := (lngRange[0] + lngRange[1]) / 2
			if l.lng >= mid {
				ch = ch<<1 | 1
				lngRange[0] = mid
			} else {
				ch <<= 1
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if l.lat >= mid {
				ch = ch<<1 | 1
				latRange[0] = mid
			} else {
				ch <<= 1
				latRange[1] = mid
			}
		}
		even = !even
		bits++
		if bits == 5 {
			hash = append(hash, geohashBase32[ch])
			bits, ch = 0, 0
		}
	}
	return string(hash)
}

// DistanceMeters returns the haversine great-circle distance to other.
func (l Location) DistanceMeters(other Location) float64 {
	const earthRadiusM = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(other.lat - l.lat)
	dLng := toRad(other.lng - l.lng)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(l.lat))*math.Cos(toRad(other.lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
