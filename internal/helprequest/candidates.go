package helprequest

import (
	"fmt"
	"math/rand"

	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

// Candidates is an immutable, identity-deduplicated set of candidates.
// No two entries share a user id. Every operation returns a new collection so
// aggregate snapshots never alias each other.
type Candidates struct {
	list []Candidate
}

// NewCandidates builds a collection, rejecting duplicate user ids.
func NewCandidates(candidates ...Candidate) (Candidates, error) {
	out := Candidates{}
	for _, c := range candidates {
		var err error
		out, err = out.Add(c)
		if err != nil {
			return Candidates{}, err
		}
	}
	return out, nil
}

// Len returns the number of candidates.
func (cs Candidates) Len() int { return len(cs.list) }

// All returns a copy of the candidate slice.
func (cs Candidates) All() []Candidate {
	out := make([]Candidate, len(cs.list))
	copy(out, cs.list)
	return out
}

// Get looks a candidate up by user id.
func (cs Candidates) Get(id domain.UserID) (Candidate, bool) {
	for _, c := range cs.list {
		if c.Info.ID == id {
			return c, true
		}
	}
	return Candidate{}, false
}

// Exists reports whether a candidate with the given user id is present.
func (cs Candidates) Exists(id domain.UserID) bool {
	_, ok := cs.Get(id)
	return ok
}

// Add appends a candidate. A duplicate id is a programming error, not a
// benign case.
func (cs Candidates) Add(c Candidate) (Candidates, error) {
	if cs.Exists(c.Info.ID) {
		return Candidates{}, fmt.Errorf("%w: candidate %s already present", sentinel.ErrConflict, c.Info.ID)
	}
	return cs.with(append(cs.snapshot(), c)), nil
}

// Merge combines two collections, silently skipping ids already present.
// Used when combining discovery batches; the skip makes the merge idempotent.
func (cs Candidates) Merge(other Candidates) Candidates {
	out := cs.snapshot()
	for _, c := range other.list {
		if !cs.Exists(c.Info.ID) {
			out = append(out, c)
		}
	}
	return cs.with(out)
}

// WithStatus returns the subset of candidates in the given status.
func (cs Candidates) WithStatus(status CandidateStatus) Candidates {
	var out []Candidate
	for _, c := range cs.list {
		if c.StatusIs(status) {
			out = append(out, c)
		}
	}
	return cs.with(out)
}

// ExistsByStatus reports whether any candidate has the given status.
func (cs Candidates) ExistsByStatus(status CandidateStatus) bool {
	for _, c := range cs.list {
		if c.StatusIs(status) {
			return true
		}
	}
	return false
}

// RandomByStatus picks uniformly among candidates in the given status.
// Selection scaffolding for tests and dev tooling, not a ranking algorithm.
func (cs Candidates) RandomByStatus(status CandidateStatus) (Candidate, bool) {
	matches := cs.WithStatus(status).list
	if len(matches) == 0 {
		return Candidate{}, false
	}
	return matches[rand.Intn(len(matches))], true
}

// ApplyVerificationResult records one supporter's challenge response.
// Unknown ids and candidates already past the verification-requested state
// leave the collection structurally unchanged; this is what makes a repeated
// delivery of the same result safe at the use-case layer.
func (cs Candidates) ApplyVerificationResult(id domain.UserID, succeeded bool) (Candidates, error) {
	out := cs.snapshot()
	for i, c := range out {
		if c.Info.ID != id {
			continue
		}
		if !c.StatusIs(CandidateVerificationRequested) {
			return cs.with(out), nil
		}
		var (
			next Candidate
			err  error
		)
		if succeeded {
			next, err = c.SucceedVerification()
		} else {
			next, err = c.FailVerification()
		}
		if err != nil {
			return Candidates{}, err
		}
		out[i] = next
		break
	}
	return cs.with(out), nil
}

// TimeoutVerification forces every candidate still awaiting verification into
// the failed state. This is the deadline-resolution step.
func (cs Candidates) TimeoutVerification() (Candidates, error) {
	out := cs.snapshot()
	for i, c := range out {
		if !c.StatusIs(CandidateVerificationRequested) {
			continue
		}
		next, err := c.FailVerification()
		if err != nil {
			return Candidates{}, err
		}
		out[i] = next
	}
	return cs.with(out), nil
}

// RequestVerification moves every pending candidate into the
// verification-requested state.
func (cs Candidates) RequestVerification() (Candidates, error) {
	out := cs.snapshot()
	for i, c := range out {
		if !c.StatusIs(CandidatePending) {
			continue
		}
		next, err := c.RequestVerification()
		if err != nil {
			return Candidates{}, err
		}
		out[i] = next
	}
	return cs.with(out), nil
}

// MarkNotified transitions every verification-succeeded candidate to
// help-request-notified.
func (cs Candidates) MarkNotified() (Candidates, error) {
	out := cs.snapshot()
	for i, c := range out {
		if !c.StatusIs(CandidateVerificationSucceeded) {
			continue
		}
		next, err := c.MarkNotified()
		if err != nil {
			return Candidates{}, err
		}
		out[i] = next
	}
	return cs.with(out), nil
}

// RecordResponse applies a supporter's accept/decline after notification.
func (cs Candidates) RecordResponse(id domain.UserID, accepted bool) (Candidates, error) {
	out := cs.snapshot()
	for i, c := range out {
		if c.Info.ID != id {
			continue
		}
		var (
			next Candidate
			err  error
		)
		if accepted {
			next, err = c.Accept()
		} else {
			next, err = c.Decline()
		}
		if err != nil {
			return Candidates{}, err
		}
		out[i] = next
		return cs.with(out), nil
	}
	return Candidates{}, fmt.Errorf("%w: candidate %s", sentinel.ErrNotFound, id)
}

// UserInfos returns the profile snapshots of all candidates, in order.
func (cs Candidates) UserInfos() []UserInfo {
	out := make([]UserInfo, len(cs.list))
	for i, c := range cs.list {
		out[i] = c.Info
	}
	return out
}

func (cs Candidates) snapshot() []Candidate {
	out := make([]Candidate, len(cs.list))
	copy(out, cs.list)
	return out
}

func (cs Candidates) with(list []Candidate) Candidates {
	return Candidates{list: list}
}
