package helprequest

import (
	"fmt"
	"time"

	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Status is the aggregate-level state. The joint invariant with candidate
// states: verification-requested implies at least one candidate is not yet
// terminal; matched implies at least one candidate succeeded.
type Status string

const (
	StatusPending               Status = "pending"
	StatusVerificationRequested Status = "proximity-verification-requested"
	StatusMatched               Status = "matched"
	StatusFailed                Status = "failed"
	StatusSent                  Status = "sent"
	StatusCompleted             Status = "completed"
)

var statuses = map[Status]bool{
	StatusPending:               true,
	StatusVerificationRequested: true,
	StatusMatched:               true,
	StatusFailed:                true,
	StatusSent:                  true,
	StatusCompleted:             true,
}

// ParseStatus validates a persisted status string.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !statuses[st] {
		return "", fmt.Errorf("unknown help request status %q", s)
	}
	return st, nil
}

// VerificationWindow is the fixed time supporters get to answer the
// proximity challenge before the timeout resolves the request.
const VerificationWindow = time.Minute

// HelpRequest is the aggregate root. All transitions derive a new value from
// the old one; there is no field mutation after construction. Version backs
// the store's optimistic-concurrency write.
type HelpRequest struct {
	ID                   domain.HelpRequestID
	VerificationID       domain.VerificationID
	RequesterID          domain.UserID
	Status               Status
	Location             domain.Location
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Candidates           Candidates
	VerificationDeadline time.Time
	Version              int64
}

// New starts a pending help request for a requester at a location.
func New(id domain.HelpRequestID, verificationID domain.VerificationID, requesterID domain.UserID, loc domain.Location, now time.Time) HelpRequest {
	return HelpRequest{
		ID:             id,
		VerificationID: verificationID,
		RequesterID:    requesterID,
		Status:         StatusPending,
		Location:       loc,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (h HelpRequest) guard(want Status, via string) error {
	if h.Status != want {
		return fmt.Errorf("%w: help request %s cannot %s from %q",
			sentinel.ErrInvalidState, h.ID, via, h.Status)
	}
	return nil
}

func (h HelpRequest) touched(now time.Time) HelpRequest {
	h.UpdatedAt = now
	return h
}

// AddCandidates merge-dedups discovered supporters into the collection.
// Only meaningful while the request is still pending.
func (h HelpRequest) AddCandidates(batch Candidates, now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusPending, "add candidates"); err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = h.Candidates.Merge(batch)
	return h.touched(now), nil
}

// RequestVerification fans the proximity challenge out at the domain level:
// every pending candidate moves to verification-requested and the deadline is
// fixed at now plus the verification window.
func (h HelpRequest) RequestVerification(now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusPending, "request verification"); err != nil {
		return HelpRequest{}, err
	}
	next, err := h.Candidates.RequestVerification()
	if err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = next
	h.Status = StatusVerificationRequested
	h.VerificationDeadline = now.Add(VerificationWindow)
	return h.touched(now), nil
}

// ApplyVerificationResult records one supporter's challenge response and
// re-evaluates the global status. Results arrive in any order and
// concurrently, so the aggregate re-derives status from candidate states
// instead of counting responses: it stays verification-requested while a
// success exists or any candidate can still answer, and fails early only
// when every candidate has terminally failed. The timeout remains the
// authoritative matched/failed decision point.
func (h HelpRequest) ApplyVerificationResult(id domain.UserID, succeeded bool, now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusVerificationRequested, "apply verification result"); err != nil {
		return HelpRequest{}, err
	}
	next, err := h.Candidates.ApplyVerificationResult(id, succeeded)
	if err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = next
	if !next.ExistsByStatus(CandidateVerificationSucceeded) &&
		!next.ExistsByStatus(CandidateVerificationRequested) {
		h.Status = StatusFailed
	}
	return h.touched(now), nil
}

// TimeoutVerification is the deadline resolution: every still-waiting
// candidate is forced to failed, and the request becomes matched when at
// least one candidate succeeded, failed otherwise. A timeout firing after
// the request already resolved is rejected by the guard, which makes a late
// timer a loud no-op rather than silent corruption.
func (h HelpRequest) TimeoutVerification(now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusVerificationRequested, "timeout verification"); err != nil {
		return HelpRequest{}, err
	}
	next, err := h.Candidates.TimeoutVerification()
	if err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = next
	if next.ExistsByStatus(CandidateVerificationSucceeded) {
		h.Status = StatusMatched
	} else {
		h.Status = StatusFailed
	}
	return h.touched(now), nil
}

// MarkSent records that match notifications went out to the requester and
// every succeeded candidate. Only a matched request may be sent.
func (h HelpRequest) MarkSent(now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusMatched, "mark sent"); err != nil {
		return HelpRequest{}, err
	}
	next, err := h.Candidates.MarkNotified()
	if err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = next
	h.Status = StatusSent
	return h.touched(now), nil
}

// RecordCandidateResponse applies a notified supporter's accept or decline.
func (h HelpRequest) RecordCandidateResponse(id domain.UserID, accepted bool, now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusSent, "record candidate response"); err != nil {
		return HelpRequest{}, err
	}
	next, err := h.Candidates.RecordResponse(id, accepted)
	if err != nil {
		return HelpRequest{}, err
	}
	h.Candidates = next
	return h.touched(now), nil
}

// Complete terminates a sent request.
func (h HelpRequest) Complete(now time.Time) (HelpRequest, error) {
	if err := h.guard(StatusSent, "complete"); err != nil {
		return HelpRequest{}, err
	}
	h.Status = StatusCompleted
	return h.touched(now), nil
}
