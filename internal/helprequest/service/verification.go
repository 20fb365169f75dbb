package service

import (
	"context"

	"nearhelp/internal/audit"
	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
)

// HandleVerificationResult records one supporter's answer to the proximity
// challenge. Results for candidates that already reached a terminal state
// are absorbed by the aggregate; a result arriving after the whole request
// resolved is rejected with an invalid-state error.
func (s *Service) HandleVerificationResult(ctx context.Context, id domain.HelpRequestID, verificationID domain.VerificationID, supporterID domain.UserID, succeeded bool) error {
	ctx, span := s.tracer.Start(ctx, "helprequest.HandleVerificationResult")
	defer span.End()

	now := s.clock.Now()
	saved, err := s.saveWithRetry(ctx, id, func(hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
		if hr.VerificationID != verificationID {
			return helprequest.HelpRequest{}, dErrors.New(dErrors.CodeBadRequest, "verification id does not match this help request")
		}
		next, err := hr.ApplyVerificationResult(supporterID, succeeded, now)
		if err != nil {
			return helprequest.HelpRequest{}, domainError(err)
		}
		return next, nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	if s.metrics != nil {
		s.metrics.ObserveVerificationResult(succeeded)
	}
	action := audit.ActionVerificationFailed
	if succeeded {
		action = audit.ActionVerificationSucceeded
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: supporterID, Action: action})

	// Every candidate failed before the deadline: resolve now instead of
	// keeping the requester waiting for the timer.
	if saved.Status == helprequest.StatusFailed {
		s.scheduler.Cancel(id.String())
		s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: saved.RequesterID, Action: audit.ActionRequestFailed})
		if s.metrics != nil {
			s.metrics.ObserveResolution(false)
		}
		s.logger.InfoContext(ctx, "help request failed before deadline",
			"help_request_id", id)
	}
	return nil
}

// OnVerificationTimeout resolves the verification window when the deadline
// passes: still-waiting candidates are failed, and the request becomes
// matched when at least one supporter proved proximity. A timer firing
// against an already-resolved request is a no-op. The deadline is checked
// here because the HTTP timeout route is reachable by any authenticated
// caller, not just the scheduler.
func (s *Service) OnVerificationTimeout(ctx context.Context, id domain.HelpRequestID) error {
	ctx, span := s.tracer.Start(ctx, "helprequest.OnVerificationTimeout")
	defer span.End()

	now := s.clock.Now()
	saved, err := s.saveWithRetry(ctx, id, func(hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
		if hr.Status == helprequest.StatusVerificationRequested && now.Before(hr.VerificationDeadline) {
			return helprequest.HelpRequest{}, dErrors.New(dErrors.CodeBadRequest, "verification deadline has not passed")
		}
		next, err := hr.TimeoutVerification(now)
		if err != nil {
			return helprequest.HelpRequest{}, domainError(err)
		}
		return next, nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidState) {
			s.logger.DebugContext(ctx, "timeout fired on resolved help request",
				"help_request_id", id)
			return nil
		}
		span.RecordError(err)
		return err
	}

	matched := saved.Status == helprequest.StatusMatched
	if s.metrics != nil {
		s.metrics.VerificationTimeouts.Inc()
		s.metrics.ObserveResolution(matched)
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: saved.RequesterID, Action: audit.ActionVerificationTimedOut})

	if !matched {
		s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: saved.RequesterID, Action: audit.ActionRequestFailed})
		s.logger.InfoContext(ctx, "help request failed at deadline",
			"help_request_id", id)
		return nil
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: saved.RequesterID, Action: audit.ActionRequestMatched})

	// Notification is best effort per target: one unreachable device must
	// not keep the others, or the state machine, from moving on.
	s.deliverMatch(ctx, saved)

	sent, err := s.saveWithRetry(ctx, id, func(hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
		next, err := hr.MarkSent(now)
		if err != nil {
			return helprequest.HelpRequest{}, domainError(err)
		}
		return next, nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: sent.RequesterID, Action: audit.ActionRequestSent})
	s.logger.InfoContext(ctx, "help request matched",
		"help_request_id", id,
		"supporters", len(saved.Candidates.WithStatus(helprequest.CandidateVerificationSucceeded).All()),
	)
	return nil
}

// deliverMatch pushes mutual introductions: each verified supporter learns
// who asked for help, and the requester learns who is coming.
func (s *Service) deliverMatch(ctx context.Context, hr helprequest.HelpRequest) {
	verified := hr.Candidates.WithStatus(helprequest.CandidateVerificationSucceeded)

	requester, requesterDevice, err := s.loadRequester(ctx, hr.RequesterID)
	if err != nil {
		s.logger.ErrorContext(ctx, "load requester for match delivery",
			"help_request_id", hr.ID, "error", err)
		return
	}
	requesterInfo, err := helprequest.NewUserInfo(requester.ID, requester.Nickname, requester.IconURL, requester.PhysicalDescription, requesterDevice.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "build requester profile for match delivery",
			"help_request_id", hr.ID, "error", err)
		return
	}

	for _, candidate := range verified.All() {
		d, err := s.devices.FindByID(ctx, candidate.Info.DeviceID)
		if err != nil {
			s.logger.WarnContext(ctx, "supporter device gone, skipping match notification",
				"help_request_id", hr.ID, "device_id", candidate.Info.DeviceID, "error", err)
			continue
		}
		if err := s.notifier.NotifySupporterOfMatch(ctx, d.Token, requesterInfo); err != nil {
			s.logger.WarnContext(ctx, "notify supporter of match",
				"help_request_id", hr.ID, "supporter_id", candidate.Info.ID, "error", err)
		}
	}
	if err := s.notifier.NotifyRequesterOfMatch(ctx, requesterDevice.Token, verified.UserInfos()); err != nil {
		s.logger.WarnContext(ctx, "notify requester of match",
			"help_request_id", hr.ID, "error", err)
	}
}
