package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
)

type stubTransport struct {
	peers     []string
	peersErr  error
	putErr    error
	failPeers map[string]error

	putCalls  []map[string]any
	sendCalls []string
	sentData  [][]byte
}

func (s *stubTransport) PutItem(_ context.Context, path string, fields map[string]any) error {
	s.putCalls = append(s.putCalls, fields)
	return s.putErr
}

func (s *stubTransport) SendMessage(_ context.Context, peer, path string, data []byte) error {
	s.sendCalls = append(s.sendCalls, peer)
	if err, ok := s.failPeers[peer]; ok {
		return err
	}
	s.sentData = append(s.sentData, data)
	return nil
}

func (s *stubTransport) ConnectedPeers(_ context.Context) ([]string, error) {
	return s.peers, s.peersErr
}

func closedPayload(t *testing.T) *domain.SessionTransferPayload {
	t.Helper()
	return &domain.SessionTransferPayload{
		SessionID: 7,
		StartTime: 1700000000000,
		EndTime:   1700000060000,
		Samples:   []domain.SamplePoint{{Timestamp: 1700000000020}},
	}
}

func TestSendLiveThrottlesUpdates(t *testing.T) {
	transport := &stubTransport{}
	sender := NewSender(transport, 500*time.Millisecond, zap.NewNop())

	clock := time.Unix(1700000000, 0)
	sender.now = func() time.Time { return clock }

	sent, err := sender.SendLive(context.Background(), LiveSample{HeartRate: 70, Timestamp: 1})
	require.NoError(t, err)
	require.True(t, sent)

	// Inside the throttle window the update is dropped, not queued.
	clock = clock.Add(100 * time.Millisecond)
	sent, err = sender.SendLive(context.Background(), LiveSample{HeartRate: 71, Timestamp: 2})
	require.NoError(t, err)
	require.False(t, sent)

	clock = clock.Add(500 * time.Millisecond)
	sent, err = sender.SendLive(context.Background(), LiveSample{HeartRate: 72, Timestamp: 3})
	require.NoError(t, err)
	require.True(t, sent)

	require.Len(t, transport.putCalls, 2)
	require.Equal(t, 70.0, transport.putCalls[0]["heartRate"])
	require.Equal(t, 72.0, transport.putCalls[1]["heartRate"])
}

func TestSendLiveSurfacesTransportError(t *testing.T) {
	transport := &stubTransport{putErr: errors.New("radio off")}
	sender := NewSender(transport, time.Millisecond, zap.NewNop())

	sent, err := sender.SendLive(context.Background(), LiveSample{Timestamp: 1})
	require.Error(t, err)
	require.False(t, sent)
}

func TestSendSessionRequiresPeers(t *testing.T) {
	transport := &stubTransport{}
	sender := NewSender(transport, time.Millisecond, zap.NewNop())

	accepted, err := sender.SendSession(context.Background(), closedPayload(t))
	require.ErrorIs(t, err, domain.ErrTransportRejected)
	require.False(t, accepted)
	require.Empty(t, transport.sendCalls)
}

func TestSendSessionAcceptsOnAnyPeer(t *testing.T) {
	transport := &stubTransport{
		peers:     []string{"phone-a", "phone-b"},
		failPeers: map[string]error{"phone-a": errors.New("unreachable")},
	}
	sender := NewSender(transport, time.Millisecond, zap.NewNop())

	accepted, err := sender.SendSession(context.Background(), closedPayload(t))
	require.NoError(t, err)
	require.True(t, accepted)
	require.Equal(t, []string{"phone-a", "phone-b"}, transport.sendCalls)
	require.Len(t, transport.sentData, 1)

	decoded, err := DecodeSessionPayload(transport.sentData[0])
	require.NoError(t, err)
	require.Equal(t, int64(7), decoded.SessionID)
}

func TestSendSessionRejectedByAllPeers(t *testing.T) {
	transport := &stubTransport{
		peers: []string{"phone-a"},
		failPeers: map[string]error{
			"phone-a": errors.New("unreachable"),
		},
	}
	sender := NewSender(transport, time.Millisecond, zap.NewNop())

	accepted, err := sender.SendSession(context.Background(), closedPayload(t))
	require.ErrorIs(t, err, domain.ErrTransportRejected)
	require.False(t, accepted)
}
