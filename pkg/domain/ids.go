// Package domain holds shared domain primitives: validated identifiers and
// the Location value. Parsing enforces validity once at the boundary so the
// rest of the code can treat these types as always well-formed.
package domain

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

const (
	maxUserIDLen     = 128
	maxDeviceIDLen   = 128
	helpRequestIDLen = 20
)

// UserID identifies a user account. Non-empty, bounded length.
type UserID string

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return "", fmt.Errorf("user id must not be empty")
	}
	if len(s) > maxUserIDLen {
		return "", fmt.Errorf("user id exceeds %d characters", maxUserIDLen)
	}
	return UserID(s), nil
}

func (id UserID) String() string { return string(id) }

func (id UserID) IsZero() bool { return id == "" }

// DeviceID identifies a registered device. Non-empty, bounded length.
type DeviceID string

// ParseDeviceID validates and returns a DeviceID.
func ParseDeviceID(s string) (DeviceID, error) {
	if s == "" {
		return "", fmt.Errorf("device id must not be empty")
	}
	if len(s) > maxDeviceIDLen {
		return "", fmt.Errorf("device id exceeds %d characters", maxDeviceIDLen)
	}
	return DeviceID(s), nil
}

func (id DeviceID) String() string { return string(id) }

func (id DeviceID) IsZero() bool { return id == "" }

// HelpRequestID is a fixed-length alphanumeric identifier.
type HelpRequestID string

// ParseHelpRequestID validates the 20-character alphanumeric format.
func ParseHelpRequestID(s string) (HelpRequestID, error) {
	if len(s) != helpRequestIDLen {
		return "", fmt.Errorf("help request id must be %d characters, got %d", helpRequestIDLen, len(s))
	}
	for _, r := range s {
		if !isAlnum(r) {
			return "", fmt.Errorf("help request id must be alphanumeric")
		}
	}
	return HelpRequestID(s), nil
}

// NewHelpRequestID generates a random help request identifier.
func NewHelpRequestID() HelpRequestID {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, helpRequestIDLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return HelpRequestID(buf)
}

func (id HelpRequestID) String() string { return string(id) }

func (id HelpRequestID) IsZero() bool { return id == "" }

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// VerificationID identifies one proximity-verification challenge. UUID format.
type VerificationID string

// ParseVerificationID validates the UUID format.
func ParseVerificationID(s string) (VerificationID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("verification id must be a UUID: %w", err)
	}
	return VerificationID(s), nil
}

// NewVerificationID generates a fresh challenge identifier.
func NewVerificationID() VerificationID {
	return VerificationID(uuid.NewString())
}

func (id VerificationID) String() string { return string(id) }

func (id VerificationID) IsZero() bool { return id == "" }
