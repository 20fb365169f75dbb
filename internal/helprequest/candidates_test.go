package helprequest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearhelp/pkg/domain"
	"nearhelp/pkg/platform/sentinel"
)

func requestedCandidate(t *testing.T, id string) Candidate {
	t.Helper()
	c, err := NewCandidate(mustUserInfo(t, id, "device-"+id)).RequestVerification()
	require.NoError(t, err)
	return c
}

func TestCandidatesAdd(t *testing.T) {
	t.Run("duplicate id is rejected", func(t *testing.T) {
		cs, err := NewCandidates(NewCandidate(mustUserInfo(t, "supporter-1", "device-1")))
		require.NoError(t, err)

		_, err = cs.Add(NewCandidate(mustUserInfo(t, "supporter-1", "device-other")))
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})

	t.Run("add does not alias the receiver", func(t *testing.T) {
		cs, err := NewCandidates(NewCandidate(mustUserInfo(t, "supporter-1", "device-1")))
		require.NoError(t, err)

		grown, err := cs.Add(NewCandidate(mustUserInfo(t, "supporter-2", "device-2")))
		require.NoError(t, err)
		assert.Equal(t, 1, cs.Len())
		assert.Equal(t, 2, grown.Len())
	})
}

func TestCandidatesMerge(t *testing.T) {
	a, err := NewCandidates(
		NewCandidate(mustUserInfo(t, "supporter-1", "device-1")),
		NewCandidate(mustUserInfo(t, "supporter-2", "device-2")),
	)
	require.NoError(t, err)
	b, err := NewCandidates(
		NewCandidate(mustUserInfo(t, "supporter-2", "device-2b")),
		NewCandidate(mustUserInfo(t, "supporter-3", "device-3")),
	)
	require.NoError(t, err)

	merged := a.Merge(b)
	assert.Equal(t, 3, merged.Len())

	// Existing entry wins on overlap; merge is idempotent.
	kept, ok := merged.Get("supporter-2")
	require.True(t, ok)
	assert.Equal(t, domain.DeviceID("device-2"), kept.Info.DeviceID)
	assert.Equal(t, 3, merged.Merge(b).Len())
}

func TestCandidatesStatusViews(t *testing.T) {
	cs, err := NewCandidates(
		requestedCandidate(t, "supporter-1"),
		NewCandidate(mustUserInfo(t, "supporter-2", "device-supporter-2")),
	)
	require.NoError(t, err)

	assert.Equal(t, 1, cs.WithStatus(CandidateVerificationRequested).Len())
	assert.Equal(t, 1, cs.WithStatus(CandidatePending).Len())
	assert.True(t, cs.ExistsByStatus(CandidatePending))
	assert.False(t, cs.ExistsByStatus(CandidateVerificationSucceeded))
}

func TestCandidatesRandomByStatus(t *testing.T) {
	cs, err := NewCandidates(
		requestedCandidate(t, "supporter-1"),
		requestedCandidate(t, "supporter-2"),
	)
	require.NoError(t, err)

	picked, ok := cs.RandomByStatus(CandidateVerificationRequested)
	require.True(t, ok)
	assert.True(t, cs.Exists(picked.Info.ID))

	_, ok = cs.RandomByStatus(CandidateNotified)
	assert.False(t, ok)
}

func TestCandidatesApplyVerificationResult(t *testing.T) {
	cs, err := NewCandidates(
		requestedCandidate(t, "supporter-1"),
		requestedCandidate(t, "supporter-2"),
	)
	require.NoError(t, err)

	t.Run("matching id transitions", func(t *testing.T) {
		next, err := cs.ApplyVerificationResult("supporter-1", true)
		require.NoError(t, err)
		got, _ := next.Get("supporter-1")
		assert.True(t, got.StatusIs(CandidateVerificationSucceeded))
		other, _ := next.Get("supporter-2")
		assert.True(t, other.StatusIs(CandidateVerificationRequested))
	})

	t.Run("unknown id is a structural no-op", func(t *testing.T) {
		next, err := cs.ApplyVerificationResult("stranger", true)
		require.NoError(t, err)
		assert.Equal(t, cs.All(), next.All())
	})

	t.Run("repeat delivery leaves terminal state untouched", func(t *testing.T) {
		once, err := cs.ApplyVerificationResult("supporter-1", true)
		require.NoError(t, err)
		twice, err := once.ApplyVerificationResult("supporter-1", true)
		require.NoError(t, err)
		assert.Equal(t, once.All(), twice.All())

		// Even a flipped result cannot move a terminal candidate.
		flipped, err := once.ApplyVerificationResult("supporter-1", false)
		require.NoError(t, err)
		got, _ := flipped.Get("supporter-1")
		assert.True(t, got.StatusIs(CandidateVerificationSucceeded))
	})
}

func TestCandidatesTimeoutVerification(t *testing.T) {
	cs, err := NewCandidates(
		requestedCandidate(t, "supporter-1"),
		requestedCandidate(t, "supporter-2"),
	)
	require.NoError(t, err)
	cs, err = cs.ApplyVerificationResult("supporter-1", true)
	require.NoError(t, err)

	timedOut, err := cs.TimeoutVerification()
	require.NoError(t, err)

	winner, _ := timedOut.Get("supporter-1")
	assert.True(t, winner.StatusIs(CandidateVerificationSucceeded))
	loser, _ := timedOut.Get("supporter-2")
	assert.True(t, loser.StatusIs(CandidateVerificationFailed))
	assert.True(t, timedOut.ExistsByStatus(CandidateVerificationSucceeded))
}

func TestCandidatesMarkNotified(t *testing.T) {
	cs, err := NewCandidates(
		requestedCandidate(t, "supporter-1"),
		requestedCandidate(t, "supporter-2"),
	)
	require.NoError(t, err)
	cs, err = cs.ApplyVerificationResult("supporter-1", true)
	require.NoError(t, err)
	cs, err = cs.TimeoutVerification()
	require.NoError(t, err)

	notified, err := cs.MarkNotified()
	require.NoError(t, err)

	winner, _ := notified.Get("supporter-1")
	assert.True(t, winner.StatusIs(CandidateNotified))
	loser, _ := notified.Get("supporter-2")
	assert.True(t, loser.StatusIs(CandidateVerificationFailed))
}

func TestCandidatesRecordResponse(t *testing.T) {
	cs, err := NewCandidates(requestedCandidate(t, "supporter-1"))
	require.NoError(t, err)
	cs, err = cs.ApplyVerificationResult("supporter-1", true)
	require.NoError(t, err)
	cs, err = cs.MarkNotified()
	require.NoError(t, err)

	t.Run("accept", func(t *testing.T) {
		next, err := cs.RecordResponse("supporter-1", true)
		require.NoError(t, err)
		got, _ := next.Get("supporter-1")
		assert.True(t, got.StatusIs(CandidateAccepted))
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := cs.RecordResponse("stranger", true)
		require.Error(t, err)
		assert.True(t, errors.Is(err, sentinel.ErrNotFound))
	})
}
