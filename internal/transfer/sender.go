package transfer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
)

// Sender is the wearable-side face of the protocol. Live sends are throttled
// to one per minInterval; bulk sends fan out to every reachable peer.
type Sender struct {
	transport   Transport
	minInterval time.Duration
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.Mutex
	lastLive time.Time
}

// NewSender constructs a Sender.
func NewSender(transport Transport, minInterval time.Duration, logger *zap.Logger) *Sender {
	return &Sender{
		transport:   transport,
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
	}
}

// SendLive forwards the latest reading with overwrite semantics. Updates
// arriving faster than the throttle interval are dropped, not queued; the
// returned bool reports whether a send actually happened.
func (s *Sender) SendLive(ctx context.Context, sample LiveSample) (bool, error) {
	s.mu.Lock()
	now := s.now()
	if !s.lastLive.IsZero() && now.Sub(s.lastLive) < s.minInterval {
		s.mu.Unlock()
		return false, nil
	}
	s.lastLive = now
	s.mu.Unlock()

	if err := s.transport.PutItem(ctx, LiveTelemetryPath, sample.Fields()); err != nil {
		liveSendErrorCounter.Inc()
		return false, err
	}
	liveSendCounter.Inc()
	return true, nil
}

// SendSession serializes payload and attempts an addressed send to every
// connected peer. Returns true if at least one peer's transport accepted the
// message. Acceptance is a delivery hint, not proof the companion stored it.
func (s *Sender) SendSession(ctx context.Context, payload *domain.SessionTransferPayload) (bool, error) {
	data, err := EncodeSessionPayload(payload)
	if err != nil {
		return false, err
	}

	peers, err := s.transport.ConnectedPeers(ctx)
	if err != nil {
		return false, err
	}
	if len(peers) == 0 {
		return false, domain.ErrTransportRejected
	}

	accepted := false
	for _, peer := range peers {
		if err := s.transport.SendMessage(ctx, peer, SessionTransferPath, data); err != nil {
			s.logger.Warn("bulk send rejected",
				zap.String("peer", peer),
				zap.Int64("session_id", payload.SessionID),
				zap.Error(err))
			continue
		}
		accepted = true
	}

	if !accepted {
		bulkSendErrorCounter.Inc()
		return false, domain.ErrTransportRejected
	}
	bulkSendCounter.Inc()
	return true, nil
}
