package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Identifier parsing enforces validity at trust boundaries; everything past
// the parse treats the types as well-formed.

func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
	})

	t.Run("rejects over-long id", func(t *testing.T) {
		_, err := ParseUserID(strings.Repeat("a", 129))
		require.Error(t, err)
	})

	t.Run("accepts firebase-style uid", func(t *testing.T) {
		id, err := ParseUserID("u8FgT2kL9xQ4mRv7")
		require.NoError(t, err)
		assert.Equal(t, "u8FgT2kL9xQ4mRv7", id.String())
	})
}

func TestParseDeviceID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseDeviceID("")
		require.Error(t, err)
	})

	t.Run("accepts token-like id", func(t *testing.T) {
		id, err := ParseDeviceID("device-abc-123")
		require.NoError(t, err)
		assert.False(t, id.IsZero())
	})
}

func TestParseHelpRequestID(t *testing.T) {
	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseHelpRequestID("short")
		require.Error(t, err)
	})

	t.Run("rejects non-alphanumeric", func(t *testing.T) {
		_, err := ParseHelpRequestID("abcd-efgh-ijkl-mnop!")
		require.Error(t, err)
	})

	t.Run("generated ids round-trip", func(t *testing.T) {
		id := NewHelpRequestID()
		parsed, err := ParseHelpRequestID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("generated ids are unique", func(t *testing.T) {
		seen := map[HelpRequestID]bool{}
		for range 100 {
			id := NewHelpRequestID()
			assert.False(t, seen[id])
			seen[id] = true
		}
	})
}

func TestParseVerificationID(t *testing.T) {
	t.Run("rejects non-uuid", func(t *testing.T) {
		_, err := ParseVerificationID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("accepts generated uuid", func(t *testing.T) {
		id := NewVerificationID()
		_, err := uuid.Parse(id.String())
		require.NoError(t, err)
	})
}
