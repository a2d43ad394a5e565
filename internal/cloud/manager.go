package cloud

import (
	"context"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/identity"
)

// LocalStore is the companion-side persistence the reconciliation sweep
// reads from. Implemented by the Postgres repository.
type LocalStore interface {
	ListSessions(ctx context.Context) ([]domain.CompanionSession, error)
	SamplesForSession(ctx context.Context, sessionID int64) ([]domain.SampleRecord, error)
	MarkCloudSynced(ctx context.Context, id int64) error
}

// ProgressFunc receives fractional upload progress in [0, 1].
type ProgressFunc func(fraction float64)

// ReconcileResult reports one sweep over the local sessions.
type ReconcileResult struct {
	UploadedCount int
	SkippedCount  int
	TotalCount    int
	FailedIDs     []int64
	Success       bool
}

// Manager uploads sessions and sample batches to the cloud document store.
// All writes use deterministic keys, so re-uploading a session overwrites in
// place instead of duplicating.
type Manager struct {
	store      DocumentStore
	local      LocalStore
	identity   identity.Provider
	batchLimit int
	logger     *zap.Logger
	now        func() time.Time
}

// NewManager constructs a Manager. batchLimit must not exceed the store's
// per-batch cap.
func NewManager(store DocumentStore, local LocalStore, provider identity.Provider, batchLimit int, logger *zap.Logger) *Manager {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	return &Manager{
		store:      store,
		local:      local,
		identity:   provider,
		batchLimit: batchLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// UploadSession writes the session document, then the samples in capped
// batches. Progress runs 0, 0.3 after the session doc, then linearly to 1.0
// across batches. Any failure aborts the remaining batches and returns
// false. Committed batches are not rolled back, and since the session doc
// lands before the samples, the reconciliation sweep will see the doc and
// skip the session: an aborted upload can leave a partial sample set in
// the cloud until the session is deleted and re-uploaded.
func (m *Manager) UploadSession(ctx context.Context, session domain.CompanionSession, samples []domain.SampleRecord, progress ProgressFunc) bool {
	report := func(fraction float64) {
		if progress != nil {
			progress(fraction)
		}
	}
	report(0)

	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil || principal == nil {
		m.logger.Warn("upload refused: no principal", zap.Error(err))
		uploadFailureCounter.Inc()
		return false
	}
	userID := principal.ID

	sessionKey := domain.SessionDocKey(userID, session.CloudID)
	if err := m.store.Upsert(ctx, SessionCollection, sessionKey, sessionDoc(userID, session, m.now().UTC())); err != nil {
		m.logger.Error("session doc upsert failed",
			zap.String("cloud_id", session.CloudID), zap.Error(err))
		uploadFailureCounter.Inc()
		return false
	}
	report(0.3)

	totalBatches := (len(samples) + m.batchLimit - 1) / m.batchLimit
	for i := 0; i < totalBatches; i++ {
		chunk := samples[i*m.batchLimit : min((i+1)*m.batchLimit, len(samples))]

		batch := m.store.NewBatch()
		for _, rec := range chunk {
			key := domain.SampleDocKey(userID, session.CloudID, rec.Timestamp.UnixMilli())
			batch.Set(SampleCollection, key, sampleDoc(userID, session.CloudID, rec))
		}
		if err := batch.Commit(ctx); err != nil {
			m.logger.Error("sample batch commit failed",
				zap.String("cloud_id", session.CloudID),
				zap.Int("batch", i+1),
				zap.Int("of", totalBatches),
				zap.Error(err))
			uploadFailureCounter.Inc()
			return false
		}
		report(0.3 + 0.7*float64(i+1)/float64(totalBatches))
	}
	report(1.0)

	m.logger.Info("session uploaded",
		zap.String("cloud_id", session.CloudID),
		zap.Int("samples", len(samples)),
		zap.Int("batches", totalBatches))
	sessionsUploadedCounter.Inc()
	samplesUploadedCounter.Add(float64(len(samples)))
	return true
}

// DownloadAllSessions lists the principal's cloud sessions, newest start
// first. Malformed documents are skipped, never fatal.
func (m *Manager) DownloadAllSessions(ctx context.Context) ([]CloudSession, error) {
	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := m.store.Query(ctx, Query{
		Collection: SessionCollection,
		Filters:    []Filter{{Field: "userId", Value: principal.ID}},
		OrderBy:    "startTime",
		Descending: true,
	})
	if err != nil {
		return nil, err
	}

	sessions := make([]CloudSession, 0, len(docs))
	for _, doc := range docs {
		session, err := decodeSessionDoc(doc)
		if err != nil {
			m.logger.Warn("skipping malformed session document", zap.Error(err))
			continue
		}
		sessions = append(sessions, *session)
	}
	return sessions, nil
}

// DownloadSession fetches one session by its stable id, or nil when absent.
func (m *Manager) DownloadSession(ctx context.Context, cloudID string) (*CloudSession, error) {
	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := m.store.Get(ctx, SessionCollection, domain.SessionDocKey(principal.ID, cloudID))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return decodeSessionDoc(doc)
}

// DownloadSamples fetches a session's sample timeline in ascending order.
func (m *Manager) DownloadSamples(ctx context.Context, cloudID string) ([]CloudSample, error) {
	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	docs, err := m.store.Query(ctx, Query{
		Collection: SampleCollection,
		Filters: []Filter{
			{Field: "userId", Value: principal.ID},
			{Field: "sessionId", Value: cloudID},
		},
		OrderBy: "timestamp",
	})
	if err != nil {
		return nil, err
	}

	samples := make([]CloudSample, 0, len(docs))
	for _, doc := range docs {
		sample, err := decodeSampleDoc(doc)
		if err != nil {
			m.logger.Warn("skipping malformed sample document", zap.Error(err))
			continue
		}
		samples = append(samples, *sample)
	}
	return samples, nil
}

// DeleteCloudSession removes the session document and every sample document
// for it, batched. Best-effort: a failure mid-way can leave some sample
// documents behind.
func (m *Manager) DeleteCloudSession(ctx context.Context, cloudID string) bool {
	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil {
		m.logger.Warn("delete refused: no principal", zap.Error(err))
		return false
	}
	userID := principal.ID

	docs, err := m.store.Query(ctx, Query{
		Collection: SampleCollection,
		Filters: []Filter{
			{Field: "userId", Value: userID},
			{Field: "sessionId", Value: cloudID},
		},
	})
	if err != nil {
		m.logger.Error("sample query for delete failed", zap.Error(err))
		return false
	}

	for start := 0; start < len(docs); start += m.batchLimit {
		batch := m.store.NewBatch()
		for _, doc := range docs[start:min(start+m.batchLimit, len(docs))] {
			ts, ok := asInt64(doc["timestamp"])
			if !ok {
				continue
			}
			batch.Delete(SampleCollection, domain.SampleDocKey(userID, cloudID, ts))
		}
		if err := batch.Commit(ctx); err != nil {
			m.logger.Error("sample delete batch failed", zap.Error(err))
			return false
		}
	}

	batch := m.store.NewBatch()
	batch.Delete(SessionCollection, domain.SessionDocKey(userID, cloudID))
	if err := batch.Commit(ctx); err != nil {
		m.logger.Error("session doc delete failed", zap.Error(err))
		return false
	}
	return true
}

// SyncAllLocalSessions uploads every local session absent from the cloud.
// Existing sessions are skipped by a deterministic-key existence check,
// which makes repeated sweeps idempotent and cheap. Item failures never
// abort the sweep.
func (m *Manager) SyncAllLocalSessions(ctx context.Context) (ReconcileResult, error) {
	principal, err := m.identity.CurrentPrincipal(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	sessions, err := m.local.ListSessions(ctx)
	if err != nil {
		return ReconcileResult{}, err
	}

	result := ReconcileResult{TotalCount: len(sessions)}
	for _, session := range sessions {
		existing, err := m.store.Get(ctx, SessionCollection, domain.SessionDocKey(principal.ID, session.CloudID))
		if err != nil {
			result.FailedIDs = append(result.FailedIDs, session.ID)
			continue
		}
		if existing != nil {
			result.SkippedCount++
			m.markSynced(ctx, session)
			continue
		}

		samples, err := m.local.SamplesForSession(ctx, session.ID)
		if err != nil {
			result.FailedIDs = append(result.FailedIDs, session.ID)
			continue
		}
		if !m.UploadSession(ctx, session, samples, nil) {
			result.FailedIDs = append(result.FailedIDs, session.ID)
			continue
		}
		result.UploadedCount++
		m.markSynced(ctx, session)
	}
	result.Success = len(result.FailedIDs) == 0
	return result, nil
}

func (m *Manager) markSynced(ctx context.Context, session domain.CompanionSession) {
	if session.CloudSynced {
		return
	}
	if err := m.local.MarkCloudSynced(ctx, session.ID); err != nil {
		m.logger.Warn("mark cloud synced failed", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}
