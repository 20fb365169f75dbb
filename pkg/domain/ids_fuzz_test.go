//go:build go1.18

package domain

import "testing"

// FuzzParseHelpRequestID tests that parsing never panics on arbitrary input
// and that every accepted value round-trips unchanged.
func FuzzParseHelpRequestID(f *testing.F) {
	f.Add("")
	f.Add("abcdefghij0123456789")
	f.Add("ABCDEFGHIJKLMNOPQRST")
	f.Add("'; DROP TABLE help_requests;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("abcdefghij012345678")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseHelpRequestID(input)
		if err != nil {
			return
		}
		roundTrip, err2 := ParseHelpRequestID(id.String())
		if err2 != nil {
			t.Errorf("valid id failed round-trip: %v", err2)
		}
		if roundTrip != id {
			t.Error("round-trip changed id value")
		}
	})
}

// FuzzParseVerificationID verifies arbitrary input is either a well-formed
// UUID or an error, never both.
func FuzzParseVerificationID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseVerificationID(input)
		if err == nil && id.IsZero() {
			t.Error("accepted input produced zero id")
		}
	})
}
