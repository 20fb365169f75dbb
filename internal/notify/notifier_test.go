package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearhelp/internal/device"
	"nearhelp/internal/helprequest"
	"nearhelp/pkg/domain"
)

type capturedPush struct {
	Token string            `json:"token"`
	Data  map[string]string `json:"data"`
}

type fakeGatewayServer struct {
	mu     sync.Mutex
	pushes []capturedPush
	fail   bool
}

func (f *fakeGatewayServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var p capturedPush
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.pushes = append(f.pushes, p)
		w.WriteHeader(http.StatusOK)
	}
}

func (f *fakeGatewayServer) sent() []capturedPush {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]capturedPush, len(f.pushes))
	copy(out, f.pushes)
	return out
}

func newTestNotifier(t *testing.T, fake *fakeGatewayServer) *Notifier {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return New(NewGateway(srv.URL, "test-key", WithHTTPClient(srv.Client())))
}

func TestSendVerificationChallenge(t *testing.T) {
	fake := &fakeGatewayServer{}
	n := newTestNotifier(t, fake)

	reqID := domain.NewHelpRequestID()
	verifID := domain.NewVerificationID()
	expires := time.Date(2026, 3, 14, 9, 31, 0, 0, time.UTC)

	err := n.SendVerificationChallenge(context.Background(), "token-1", reqID, verifID, expires)
	require.NoError(t, err)

	pushes := fake.sent()
	require.Len(t, pushes, 1)
	assert.Equal(t, "token-1", pushes[0].Token)
	assert.Equal(t, "proximity-verification", pushes[0].Data["type"])
	assert.Equal(t, reqID.String(), pushes[0].Data["helpRequestId"])
	assert.Equal(t, verifID.String(), pushes[0].Data["proximityVerificationId"])
	assert.Equal(t, "2026-03-14T09:31:00Z", pushes[0].Data["expiredAt"])
}

func TestBroadcastVerificationChallenge(t *testing.T) {
	t.Run("reaches every device", func(t *testing.T) {
		fake := &fakeGatewayServer{}
		n := newTestNotifier(t, fake)

		tokens := []device.Token{"token-1", "token-2", "token-3"}
		err := n.BroadcastVerificationChallenge(context.Background(), tokens,
			domain.NewHelpRequestID(), domain.NewVerificationID(), time.Now().Add(time.Minute))
		require.NoError(t, err)
		assert.Len(t, fake.sent(), 3)
	})

	t.Run("gateway failure fails the broadcast", func(t *testing.T) {
		fake := &fakeGatewayServer{fail: true}
		n := newTestNotifier(t, fake)

		err := n.BroadcastVerificationChallenge(context.Background(), []device.Token{"token-1"},
			domain.NewHelpRequestID(), domain.NewVerificationID(), time.Now().Add(time.Minute))
		require.Error(t, err)
	})
}

func TestMatchNotifications(t *testing.T) {
	fake := &fakeGatewayServer{}
	n := newTestNotifier(t, fake)

	requester := helprequest.UserInfo{
		ID: "requester-1", Nickname: "Aoi", IconURL: "https://cdn.example/aoi.png",
		PhysicalDescription: "blue coat", DeviceID: "device-r",
	}
	supporter := helprequest.UserInfo{
		ID: "supporter-1", Nickname: "Ren", IconURL: "https://cdn.example/ren.png",
		PhysicalDescription: "red jacket", DeviceID: "device-s",
	}

	require.NoError(t, n.NotifySupporterOfMatch(context.Background(), "token-s", requester))
	require.NoError(t, n.NotifyRequesterOfMatch(context.Background(), "token-r", []helprequest.UserInfo{supporter}))

	pushes := fake.sent()
	require.Len(t, pushes, 2)

	var requesterPayload map[string]string
	require.NoError(t, json.Unmarshal([]byte(pushes[0].Data["requester"]), &requesterPayload))
	assert.Equal(t, "Aoi", requesterPayload["nickname"])
	// Device ids stay server-side; the payload carries profile fields only.
	assert.NotContains(t, requesterPayload, "deviceId")

	var candidatePayloads []map[string]string
	require.NoError(t, json.Unmarshal([]byte(pushes[1].Data["candidates"]), &candidatePayloads))
	require.Len(t, candidatePayloads, 1)
	assert.Equal(t, "red jacket", candidatePayloads[0]["physicalDescription"])
}
