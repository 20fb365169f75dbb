package helprequest

import (
	"fmt"

	"nearhelp/pkg/platform/sentinel"
)

// CandidateStatus is the per-supporter verification state. Transitions are
// order-checked: calling a transition from the wrong predecessor is an error,
// never a silent no-op, so races surface instead of corrupting state.
type CandidateStatus string

const (
	CandidatePending               CandidateStatus = "pending"
	CandidateVerificationRequested CandidateStatus = "proximity-verification-requested"
	CandidateVerificationSucceeded CandidateStatus = "proximity-verification-succeeded"
	CandidateVerificationFailed    CandidateStatus = "proximity-verification-failed"
	CandidateNotified              CandidateStatus = "help-request-notified"
	CandidateAccepted              CandidateStatus = "accepted"
	CandidateDeclined              CandidateStatus = "declined"
)

var candidateStatuses = map[CandidateStatus]bool{
	CandidatePending:               true,
	CandidateVerificationRequested: true,
	CandidateVerificationSucceeded: true,
	CandidateVerificationFailed:    true,
	CandidateNotified:              true,
	CandidateAccepted:              true,
	CandidateDeclined:              true,
}

// ParseCandidateStatus validates a persisted status string.
func ParseCandidateStatus(s string) (CandidateStatus, error) {
	st := CandidateStatus(s)
	if !candidateStatuses[st] {
		return "", fmt.Errorf("unknown candidate status %q", s)
	}
	return st, nil
}

// Candidate is one supporter considered for a help request. Identity is the
// snapshot's user id; one candidate exists per (help request, supporter).
type Candidate struct {
	Info   UserInfo
	Status CandidateStatus
}

// NewCandidate starts a candidate in the pending state.
func NewCandidate(info UserInfo) Candidate {
	return Candidate{Info: info, Status: CandidatePending}
}

// StatusIs reports whether the candidate currently has the given status.
func (c Candidate) StatusIs(status CandidateStatus) bool { return c.Status == status }

func (c Candidate) transition(from, to CandidateStatus, via string) (Candidate, error) {
	if c.Status != from {
		return Candidate{}, fmt.Errorf("%w: candidate %s cannot %s from %q",
			sentinel.ErrInvalidState, c.Info.ID, via, c.Status)
	}
	c.Status = to
	return c, nil
}

// RequestVerification moves pending → proximity-verification-requested.
func (c Candidate) RequestVerification() (Candidate, error) {
	return c.transition(CandidatePending, CandidateVerificationRequested, "request verification")
}

// SucceedVerification records a positive proximity challenge response.
func (c Candidate) SucceedVerification() (Candidate, error) {
	return c.transition(CandidateVerificationRequested, CandidateVerificationSucceeded, "succeed verification")
}

// FailVerification records a negative response or a deadline expiry.
func (c Candidate) FailVerification() (Candidate, error) {
	return c.transition(CandidateVerificationRequested, CandidateVerificationFailed, "fail verification")
}

// MarkNotified records that the final match notification went out. Only
// reachable from a succeeded verification.
func (c Candidate) MarkNotified() (Candidate, error) {
	return c.transition(CandidateVerificationSucceeded, CandidateNotified, "mark notified")
}

// Accept records the supporter taking the help request after notification.
func (c Candidate) Accept() (Candidate, error) {
	return c.transition(CandidateNotified, CandidateAccepted, "accept")
}

// Decline records the supporter turning the help request down.
func (c Candidate) Decline() (Candidate, error) {
	return c.transition(CandidateNotified, CandidateDeclined, "decline")
}
