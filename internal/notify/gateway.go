// Package notify delivers push messages to devices through an FCM-style HTTP
// gateway and implements the notifier ports the matching service consumes.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"nearhelp/pkg/platform/circuit"
	"nearhelp/pkg/platform/sentinel"
)

// Gateway posts data messages to a push-delivery endpoint. One request per
// device token; the gateway does not batch. A circuit breaker guards the
// endpoint so a dead gateway fails fast instead of tying up a broadcast in
// per-token timeouts.
type Gateway struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *circuit.Breaker

	probeMu   sync.Mutex
	nextProbe time.Time
}

// probeInterval is how often one request is let through an open circuit to
// test whether the gateway recovered.
const probeInterval = 30 * time.Second

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) { g.client = c }
}

// NewGateway creates a push gateway client.
func NewGateway(endpoint, apiKey string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		breaker:  circuit.New("push-gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type pushMessage struct {
	Token string            `json:"token"`
	Data  map[string]string `json:"data"`
}

// Send delivers one data message to one device token.
func (g *Gateway) Send(ctx context.Context, token string, data map[string]string) error {
	if g.breaker.IsOpen() && !g.allowProbe() {
		return fmt.Errorf("push gateway circuit open: %w", sentinel.ErrUnavailable)
	}

	body, err := json.Marshal(pushMessage{Token: token, Data: data})
	if err != nil {
		return fmt.Errorf("marshal push message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		g.breaker.RecordFailure()
		return fmt.Errorf("send push: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// 5xx counts against the breaker; 4xx means a bad token, the gateway
	// itself is healthy.
	if resp.StatusCode >= 500 {
		g.breaker.RecordFailure()
		return fmt.Errorf("push gateway returned %s", resp.Status)
	}
	if resp.StatusCode >= 300 {
		g.breaker.RecordSuccess()
		return fmt.Errorf("push gateway returned %s", resp.Status)
	}
	g.breaker.RecordSuccess()
	return nil
}

func (g *Gateway) allowProbe() bool {
	g.probeMu.Lock()
	defer g.probeMu.Unlock()
	now := time.Now()
	if now.Before(g.nextProbe) {
		return false
	}
	g.nextProbe = now.Add(probeInterval)
	return true
}
