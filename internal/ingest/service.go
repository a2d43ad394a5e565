// Package ingest receives both transfer channels on the companion device:
// live telemetry fans out to observers, bulk payloads land in durable
// storage.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/identity"
	"example.com/wearsync/internal/transfer"
)

// Store is the durable side of ingestion. IngestSession must be atomic: the
// session row and its samples commit together or not at all.
type Store interface {
	IngestSession(ctx context.Context, session domain.CompanionSession, samples []domain.SampleRecord) (int64, error)
}

// Subscriber delivers raw transport payloads by topic. Implemented by the
// MQTT transport.
type Subscriber interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
}

// Service decodes and routes incoming payloads.
type Service struct {
	store    Store
	bus      *Bus
	cache    *LiveCache
	mirror   *Mirror
	identity identity.Provider
	logger   *zap.Logger
	now      func() time.Time
	newCloud func() string
}

// NewService constructs a Service. cache and mirror may be nil when Redis or
// Kafka are not configured; the corresponding fan-outs are skipped.
func NewService(store Store, bus *Bus, cache *LiveCache, mirror *Mirror, provider identity.Provider, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		bus:      bus,
		cache:    cache,
		mirror:   mirror,
		identity: provider,
		logger:   logger,
		now:      time.Now,
		newCloud: uuid.NewString,
	}
}

// Start subscribes to both channels for deviceID. Handlers run on the
// transport's delivery goroutine; ctx bounds the work they spawn.
func (s *Service) Start(ctx context.Context, sub Subscriber, deviceID string) error {
	if err := sub.Subscribe(transfer.LiveTopic(), func(_ string, payload []byte) {
		s.HandleLive(ctx, payload)
	}); err != nil {
		return err
	}
	return sub.Subscribe(transfer.InboxTopic(deviceID), func(_ string, payload []byte) {
		s.HandleBulk(ctx, payload)
	})
}

// HandleLive decodes a live-telemetry payload and fans it out. This path is
// display-only; nothing is persisted.
func (s *Service) HandleLive(ctx context.Context, payload []byte) {
	sample, err := transfer.DecodeLiveSample(payload)
	if err != nil {
		s.logger.Warn("dropping malformed live payload", zap.Error(err))
		liveDroppedCounter.Inc()
		return
	}

	s.bus.Publish(*sample)
	liveReceivedCounter.Inc()

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, *sample); err != nil {
			s.logger.Warn("live cache write failed", zap.Error(err))
		}
	}
	if s.mirror != nil {
		if err := s.mirror.PublishLive(ctx, *sample); err != nil {
			s.logger.Warn("live mirror publish failed", zap.Error(err))
		}
	}
}

// HandleBulk decodes a session payload and stores it atomically. A payload
// that fails to decode is dropped whole; the store never sees a partial
// session. Returns the local session id for tests and callers that care.
func (s *Service) HandleBulk(ctx context.Context, payload []byte) (int64, bool) {
	decoded, err := transfer.DecodeSessionPayload(payload)
	if err != nil {
		s.logger.Warn("dropping malformed session payload", zap.Error(err))
		bulkDroppedCounter.Inc()
		return 0, false
	}

	userID := ""
	if principal, err := s.identity.CurrentPrincipal(ctx); err == nil && principal != nil {
		userID = principal.ID
	}

	session := domain.CompanionSession{
		CloudID:         s.newCloud(),
		UserID:          userID,
		SourceSessionID: decoded.SessionID,
		StartTime:       time.UnixMilli(decoded.StartTime).UTC(),
		EndTime:         time.UnixMilli(decoded.EndTime).UTC(),
		ReceivedAt:      s.now().UTC(),
		DataPointCount:  len(decoded.Samples),
	}

	samples := make([]domain.SampleRecord, 0, len(decoded.Samples))
	for _, point := range decoded.Samples {
		samples = append(samples, point.Record(decoded.SessionID))
	}

	localID, err := s.store.IngestSession(ctx, session, samples)
	if err != nil {
		s.logger.Error("session ingest failed",
			zap.Int64("source_session_id", decoded.SessionID),
			zap.Error(err))
		bulkFailedCounter.Inc()
		return 0, false
	}

	s.logger.Info("session ingested",
		zap.Int64("session_id", localID),
		zap.Int64("source_session_id", decoded.SessionID),
		zap.Int("samples", len(samples)))
	bulkIngestedCounter.Inc()
	recordSessionIngested(session.ReceivedAt)

	if s.mirror != nil {
		session.ID = localID
		if err := s.mirror.PublishSessionReceived(ctx, session); err != nil {
			s.logger.Warn("session mirror publish failed", zap.Error(err))
		}
	}
	return localID, true
}
