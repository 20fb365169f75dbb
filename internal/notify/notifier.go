package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"nearhelp/internal/device"
	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
)

// challenge fan-out keeps a bounded number of in-flight pushes.
const maxInflightSends = 8

// Notifier sends the matching flow's push messages. It satisfies both
// notifier ports of the help-request service.
type Notifier struct {
	gateway *Gateway
	logger  *slog.Logger
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithLogger sets a logger for send failures.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// New creates a Notifier over a push gateway.
func New(gateway *Gateway, opts ...Option) *Notifier {
	n := &Notifier{gateway: gateway, logger: slog.Default()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SendVerificationChallenge pushes the proximity challenge to one device.
func (n *Notifier) SendVerificationChallenge(ctx context.Context, token device.Token, helpRequestID domain.HelpRequestID, verificationID domain.VerificationID, expiresAt time.Time) error {
	data := map[string]string{
		"type":                    "proximity-verification",
		"helpRequestId":           helpRequestID.String(),
		"proximityVerificationId": verificationID.String(),
		"expiredAt":               expiresAt.Format(time.RFC3339),
	}
	if err := n.gateway.Send(ctx, token.String(), data); err != nil {
		return fmt.Errorf("verification challenge to device: %w", err)
	}
	return nil
}

// BroadcastVerificationChallenge fans the challenge out to every token.
// Any failure fails the broadcast: request creation reports either a fully
// notified request or an error, never partial success.
func (n *Notifier) BroadcastVerificationChallenge(ctx context.Context, tokens []device.Token, helpRequestID domain.HelpRequestID, verificationID domain.VerificationID, expiresAt time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInflightSends)
	for _, token := range tokens {
		g.Go(func() error {
			return n.SendVerificationChallenge(ctx, token, helpRequestID, verificationID, expiresAt)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	n.logger.DebugContext(ctx, "verification challenge broadcast",
		"help_request_id", helpRequestID,
		"devices", len(tokens),
	)
	return nil
}

// NotifySupporterOfMatch tells a verified supporter who asked for help.
func (n *Notifier) NotifySupporterOfMatch(ctx context.Context, token device.Token, requester helprequest.UserInfo) error {
	payload, err := json.Marshal(profilePayload(requester))
	if err != nil {
		return fmt.Errorf("marshal requester payload: %w", err)
	}
	data := map[string]string{
		"type":      "help-request",
		"requester": string(payload),
	}
	if err := n.gateway.Send(ctx, token.String(), data); err != nil {
		return fmt.Errorf("match notification to supporter: %w", err)
	}
	return nil
}

// NotifyRequesterOfMatch tells the requester which supporters are coming.
func (n *Notifier) NotifyRequesterOfMatch(ctx context.Context, token device.Token, candidates []helprequest.UserInfo) error {
	payloads := make([]map[string]string, len(candidates))
	for i, c := range candidates {
		payloads[i] = profilePayload(c)
	}
	encoded, err := json.Marshal(payloads)
	if err != nil {
		return fmt.Errorf("marshal candidates payload: %w", err)
	}
	data := map[string]string{
		"type":       "help-request",
		"candidates": string(encoded),
	}
	if err := n.gateway.Send(ctx, token.String(), data); err != nil {
		return fmt.Errorf("match notification to requester: %w", err)
	}
	return nil
}

func profilePayload(info helprequest.UserInfo) map[string]string {
	return map[string]string{
		"id":                  info.ID.String(),
		"nickname":            info.Nickname,
		"iconUrl":             info.IconURL,
		"physicalDescription": info.PhysicalDescription,
	}
}
