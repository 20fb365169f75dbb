package service

import (
	"context"
	"fmt"
	"time"

	"nearhelp/internal/audit"
	"nearhelp/internal/device"
	"nearhelp/internal/helprequest"
	"nearhelp/internal/user"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
	pstrings "nearhelp/pkg/platform/strings"
)

// Create opens a help request: it discovers available supporters near the
// requester, challenges every candidate device (and the requester's own) to
// prove proximity, and arms the verification deadline. The request is
// persisted already in the verification-requested state so a persisted
// request always has an armed timer behind it.
func (s *Service) Create(ctx context.Context, requesterID domain.UserID, loc domain.Location) (helprequest.HelpRequest, error) {
	ctx, span := s.tracer.Start(ctx, "helprequest.Create")
	defer span.End()
	start := time.Now()

	now := s.clock.Now()

	_, requesterDevice, err := s.loadRequester(ctx, requesterID)
	if err != nil {
		span.RecordError(err)
		return helprequest.HelpRequest{}, err
	}

	supporters, supporterDevices, err := s.discoverSupporters(ctx, requesterID, loc)
	if err != nil {
		span.RecordError(err)
		return helprequest.HelpRequest{}, err
	}

	candidates, err := buildCandidates(supporters, supporterDevices)
	if err != nil {
		span.RecordError(err)
		return helprequest.HelpRequest{}, err
	}

	hr := helprequest.New(domain.NewHelpRequestID(), domain.NewVerificationID(), requesterID, loc, now)
	hr, err = hr.AddCandidates(candidates, now)
	if err != nil {
		return helprequest.HelpRequest{}, domainError(err)
	}
	hr, err = hr.RequestVerification(now)
	if err != nil {
		return helprequest.HelpRequest{}, domainError(err)
	}

	hr, err = s.store.Add(ctx, hr)
	if err != nil {
		span.RecordError(err)
		return helprequest.HelpRequest{}, storeError(err, "persist help request")
	}

	s.scheduler.At(hr.ID.String(), hr.VerificationDeadline, func(ctx context.Context) {
		if err := s.OnVerificationTimeout(ctx, hr.ID); err != nil {
			s.logger.ErrorContext(ctx, "verification timeout handling failed",
				"help_request_id", hr.ID, "error", err)
		}
	})

	s.emitAudit(ctx, audit.Event{
		HelpRequestID: hr.ID,
		UserID:        requesterID,
		Action:        audit.ActionRequestCreated,
		Detail:        fmt.Sprintf("candidates=%d", candidates.Len()),
	})

	// The requester's own device participates in the challenge so both ends
	// measure the same proximity exchange.
	tokens := pstrings.DedupeAndTrim(append(supporterDevices.Tokens(), requesterDevice.Token))
	if err := s.notifier.BroadcastVerificationChallenge(ctx, tokens, hr.ID, hr.VerificationID, hr.VerificationDeadline); err != nil {
		// The timer is armed: an unchallenged request resolves as failed at
		// the deadline instead of hanging.
		span.RecordError(err)
		return helprequest.HelpRequest{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "could not deliver verification challenges")
	}
	s.emitAudit(ctx, audit.Event{
		HelpRequestID: hr.ID,
		UserID:        requesterID,
		Action:        audit.ActionVerificationRequested,
	})

	if s.metrics != nil {
		s.metrics.IncrementRequestsCreated()
		s.metrics.CandidatesPerRequest.Observe(float64(candidates.Len()))
		s.metrics.ObserveCreate(start)
	}
	s.logger.InfoContext(ctx, "help request created",
		"help_request_id", hr.ID,
		"requester_id", requesterID,
		"candidates", candidates.Len(),
	)
	return hr, nil
}

func (s *Service) loadRequester(ctx context.Context, requesterID domain.UserID) (user.User, device.Device, error) {
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		return user.User{}, device.Device{}, dErrors.Wrap(err, dErrors.CodeNotFound, "requester not found")
	}
	owned, err := s.devices.FindByOwner(ctx, requesterID)
	if err != nil {
		return user.User{}, device.Device{}, storeError(err, "load requester devices")
	}
	latest := owned.UniqueLatest()
	if len(latest) == 0 {
		return user.User{}, device.Device{}, dErrors.New(dErrors.CodeBadRequest, "requester has no registered device")
	}
	return requester, latest[0], nil
}

// discoverSupporters finds candidate users within the search radius. Users
// who opted out of helping are dropped, and so are the requester's own
// devices.
func (s *Service) discoverSupporters(ctx context.Context, requesterID domain.UserID, loc domain.Location) ([]user.User, device.Devices, error) {
	nearby, err := s.devices.FindAvailableNearby(ctx, loc, searchRadiusMeters)
	if err != nil {
		return nil, nil, storeError(err, "search nearby devices")
	}

	var foreign device.Devices
	for _, d := range nearby.UniqueLatest() {
		if d.OwnerID == requesterID {
			continue
		}
		foreign = append(foreign, d)
	}
	if len(foreign) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeNoNearbyDevices, "no devices available nearby")
	}

	owners, err := s.users.FindManyByIDs(ctx, foreign.OwnerIDs())
	if err != nil {
		return nil, nil, storeError(err, "load nearby users")
	}

	byOwner := make(map[domain.UserID]device.Device, len(foreign))
	for _, d := range foreign {
		byOwner[d.OwnerID] = d
	}

	var supporters []user.User
	var supporterDevices device.Devices
	for _, u := range owners {
		if !u.AvailableForHelp {
			continue
		}
		supporters = append(supporters, u)
		supporterDevices = append(supporterDevices, byOwner[u.ID])
	}
	if len(supporters) == 0 {
		return nil, nil, dErrors.New(dErrors.CodeNoNearbyDevices, "no users available to help nearby")
	}
	return supporters, supporterDevices, nil
}

func buildCandidates(supporters []user.User, supporterDevices device.Devices) (helprequest.Candidates, error) {
	list := make([]helprequest.Candidate, 0, len(supporters))
	for i, u := range supporters {
		info, err := helprequest.NewUserInfo(u.ID, u.Nickname, u.IconURL, u.PhysicalDescription, supporterDevices[i].ID)
		if err != nil {
			return helprequest.Candidates{}, dErrors.Wrap(err, dErrors.CodeInternal, "build candidate profile")
		}
		list = append(list, helprequest.NewCandidate(info))
	}
	candidates, err := helprequest.NewCandidates(list...)
	if err != nil {
		return helprequest.Candidates{}, domainError(err)
	}
	return candidates, nil
}
