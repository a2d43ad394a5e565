// Package syncer drives session transfer attempts from the wearable and
// forwards live telemetry while idle.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/transfer"
)

// SessionSyncResult reports one session's transfer attempt.
type SessionSyncResult struct {
	SessionID     int64
	ReadingsCount int
	Success       bool
	Err           error
}

// SyncAllResult reports a batch attempt over every unsynced closed session.
// Success is true only when FailedSessionIDs is empty; a partial success
// still carries the counts.
type SyncAllResult struct {
	SyncedCount      int
	TotalCount       int
	FailedSessionIDs []int64
	TotalReadings    int
	Success          bool
}

// Orchestrator owns the sync flags: it is the only component that marks a
// session synced, and only after the transport reported acceptance.
type Orchestrator struct {
	store  recording.Store
	sender *transfer.Sender
	logger *zap.Logger
	status *Status
	now    func() time.Time
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(store recording.Store, sender *transfer.Sender, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:  store,
		sender: sender,
		logger: logger,
		status: NewStatus(),
		now:    time.Now,
	}
}

// Status exposes the orchestrator's observable state.
func (o *Orchestrator) Status() *Status { return o.status }

// SyncSession transfers one closed session and marks it synced on confirmed
// send. A failed send leaves the sync flag untouched so the session stays a
// retry candidate.
func (o *Orchestrator) SyncSession(ctx context.Context, sessionID int64) SessionSyncResult {
	o.status.beginSync()
	result := o.syncOne(ctx, sessionID)
	o.status.endSync(o.resultMessage(result), o.pendingCount(ctx))
	return result
}

func (o *Orchestrator) syncOne(ctx context.Context, sessionID int64) SessionSyncResult {
	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionSyncResult{SessionID: sessionID, Err: err}
	}
	if session == nil || !session.Closed() {
		return SessionSyncResult{
			SessionID: sessionID,
			Err:       fmt.Errorf("session %d: %w", sessionID, domain.ErrNotTransferable),
		}
	}

	samples, err := o.store.SamplesForSession(ctx, sessionID)
	if err != nil {
		return SessionSyncResult{SessionID: sessionID, Err: err}
	}

	payload, err := domain.BuildTransferPayload(*session, samples)
	if err != nil {
		return SessionSyncResult{SessionID: sessionID, Err: err}
	}

	accepted, err := o.sender.SendSession(ctx, payload)
	if err != nil || !accepted {
		if err == nil {
			err = domain.ErrTransportRejected
		}
		syncFailureCounter.Inc()
		return SessionSyncResult{SessionID: sessionID, ReadingsCount: len(samples), Err: err}
	}

	if err := o.store.MarkSynced(ctx, sessionID, o.now().UTC()); err != nil {
		return SessionSyncResult{SessionID: sessionID, ReadingsCount: len(samples), Err: err}
	}

	o.logger.Info("session synced",
		zap.Int64("session_id", sessionID),
		zap.Int("readings", len(samples)))
	sessionsSyncedCounter.Inc()
	return SessionSyncResult{SessionID: sessionID, ReadingsCount: len(samples), Success: true}
}

// SyncAllSessions attempts every unsynced closed session. Item failures are
// accumulated, never abort the batch.
func (o *Orchestrator) SyncAllSessions(ctx context.Context) (SyncAllResult, error) {
	o.status.beginSync()

	sessions, err := o.store.UnsyncedClosedSessions(ctx)
	if err != nil {
		o.status.endSync(fmt.Sprintf("sync failed: %v", err), -1)
		return SyncAllResult{}, err
	}

	result := SyncAllResult{TotalCount: len(sessions)}
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			o.status.endSync(fmt.Sprintf("sync cancelled: %v", err), o.pendingCount(context.WithoutCancel(ctx)))
			return result, err
		}
		item := o.syncOne(ctx, session.ID)
		result.TotalReadings += item.ReadingsCount
		if item.Success {
			result.SyncedCount++
		} else {
			result.FailedSessionIDs = append(result.FailedSessionIDs, session.ID)
			o.logger.Warn("session sync failed", zap.Int64("session_id", session.ID), zap.Error(item.Err))
		}
	}
	result.Success = len(result.FailedSessionIDs) == 0

	message := fmt.Sprintf("synced %d/%d sessions (%d readings)",
		result.SyncedCount, result.TotalCount, result.TotalReadings)
	if !result.Success {
		message = fmt.Sprintf("%s, %d failed", message, len(result.FailedSessionIDs))
	}
	o.status.endSync(message, o.pendingCount(ctx))
	return result, nil
}

func (o *Orchestrator) resultMessage(result SessionSyncResult) string {
	if result.Success {
		return fmt.Sprintf("session %d synced (%d readings)", result.SessionID, result.ReadingsCount)
	}
	switch {
	case errors.Is(result.Err, domain.ErrNotTransferable):
		return fmt.Sprintf("session %d is not transferable", result.SessionID)
	case errors.Is(result.Err, domain.ErrTransportRejected):
		return fmt.Sprintf("session %d: no peer accepted the transfer", result.SessionID)
	default:
		return fmt.Sprintf("session %d sync failed: %v", result.SessionID, result.Err)
	}
}

func (o *Orchestrator) pendingCount(ctx context.Context) int {
	sessions, err := o.store.UnsyncedClosedSessions(ctx)
	if err != nil {
		return -1
	}
	pendingSessionsGauge.Set(float64(len(sessions)))
	return len(sessions)
}
