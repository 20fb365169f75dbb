package service

import (
	"context"

	"nearhelp/internal/audit"
	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
	dErrors "nearhelp/pkg/domain-errors"
)

// RecordResponse applies a notified supporter's accept or decline to a sent
// help request.
func (s *Service) RecordResponse(ctx context.Context, id domain.HelpRequestID, supporterID domain.UserID, accepted bool) error {
	ctx, span := s.tracer.Start(ctx, "helprequest.RecordResponse")
	defer span.End()

	now := s.clock.Now()
	_, err := s.saveWithRetry(ctx, id, func(hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
		next, err := hr.RecordCandidateResponse(supporterID, accepted, now)
		if err != nil {
			return helprequest.HelpRequest{}, domainError(err)
		}
		return next, nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	action := audit.ActionCandidateDeclined
	if accepted {
		action = audit.ActionCandidateAccepted
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: supporterID, Action: action})
	return nil
}

// Complete ends a sent help request. Only the requester may complete their
// own request.
func (s *Service) Complete(ctx context.Context, id domain.HelpRequestID, callerID domain.UserID) error {
	ctx, span := s.tracer.Start(ctx, "helprequest.Complete")
	defer span.End()

	now := s.clock.Now()
	_, err := s.saveWithRetry(ctx, id, func(hr helprequest.HelpRequest) (helprequest.HelpRequest, error) {
		if hr.RequesterID != callerID {
			return helprequest.HelpRequest{}, dErrors.New(dErrors.CodeUnauthorized, "only the requester may complete a help request")
		}
		next, err := hr.Complete(now)
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
		s.metrics.RequestsCompleted.Inc()
	}
	s.emitAudit(ctx, audit.Event{HelpRequestID: id, UserID: callerID, Action: audit.ActionRequestCompleted})
	s.logger.InfoContext(ctx, "help request completed", "help_request_id", id)
	return nil
}
