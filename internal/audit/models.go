// Package audit records the help-request lifecycle as append-only events so
// a matching run can be reconstructed after the fact.
package audit

import (
	"time"

	"nearhelp/pkg/domain"
)

// Action names a lifecycle step of a help request.
type Action string

const (
	ActionRequestCreated        Action = "help_request_created"
	ActionVerificationRequested Action = "proximity_verification_requested"
	ActionVerificationSucceeded Action = "proximity_verification_succeeded"
	ActionVerificationFailed    Action = "proximity_verification_failed"
	ActionVerificationTimedOut  Action = "proximity_verification_timed_out"
	ActionRequestMatched        Action = "help_request_matched"
	ActionRequestFailed         Action = "help_request_failed"
	ActionRequestSent           Action = "help_request_sent"
	ActionCandidateAccepted     Action = "candidate_accepted"
	ActionCandidateDeclined     Action = "candidate_declined"
	ActionRequestCompleted      Action = "help_request_completed"
	ActionDeviceRegistered      Action = "device_registered"
	ActionDeviceDeleted         Action = "device_deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time
	HelpRequestID domain.HelpRequestID
	UserID        domain.UserID
	Action        Action
	Detail        string
	RequestID     string
}
