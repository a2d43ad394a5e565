// Package recording implements the wearable's session state machine and the
// fixed-cadence sampling loop that feeds it.
package recording

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"example.com/wearsync/internal/domain"
)

// Store captures the persistence operations the engine needs. Implemented by
// the SQLite store on the wearable.
type Store interface {
	CreateSession(ctx context.Context, start time.Time) (int64, error)
	CloseSession(ctx context.Context, id int64, end time.Time) error
	ActiveSession(ctx context.Context) (*domain.RecordingSession, error)
	GetSession(ctx context.Context, id int64) (*domain.RecordingSession, error)
	InsertSample(ctx context.Context, sample domain.SampleRecord) (int64, error)
	SamplesForSession(ctx context.Context, sessionID int64) ([]domain.SampleRecord, error)
	SampleCount(ctx context.Context, sessionID int64) (int, error)
	UnsyncedClosedSessions(ctx context.Context) ([]domain.RecordingSession, error)
	MarkSynced(ctx context.Context, id int64, at time.Time) error
	SessionStats(ctx context.Context, sessionID int64) (*domain.SessionStats, error)
	DeleteSession(ctx context.Context, id int64) error
}

// StartResult is returned when a new recording session opens.
type StartResult struct {
	SessionID int64
	StartTime time.Time
}

// Engine is the recording state machine: Idle -> Recording -> Idle. The
// "is anything recording" answer always comes from the store's active-session
// query, never from a cached flag.
type Engine struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(store Store, logger *zap.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// StartRecording opens a new session. Rejected while another session is
// active.
func (e *Engine) StartRecording(ctx context.Context) (*StartResult, error) {
	active, err := e.store.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, fmt.Errorf("session %d: %w", active.ID, domain.ErrAlreadyRecording)
	}

	start := e.now().UTC()
	id, err := e.store.CreateSession(ctx, start)
	if err != nil {
		return nil, err
	}

	e.logger.Info("recording started", zap.Int64("session_id", id))
	recordingStartedCounter.Inc()
	return &StartResult{SessionID: id, StartTime: start}, nil
}

// StopRecording closes the session and reports its duration and sample count.
func (e *Engine) StopRecording(ctx context.Context, sessionID int64) (*domain.StopSummary, error) {
	session, err := e.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, domain.ErrSessionNotFound)
	}
	if !session.IsActive {
		return nil, fmt.Errorf("session %d: %w", sessionID, domain.ErrNotRecording)
	}

	end := e.now().UTC()
	if err := e.store.CloseSession(ctx, sessionID, end); err != nil {
		return nil, err
	}

	count, err := e.store.SampleCount(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &domain.StopSummary{
		SessionID:   sessionID,
		DurationMs:  end.Sub(session.StartTime).Milliseconds(),
		SampleCount: count,
	}
	e.logger.Info("recording stopped",
		zap.Int64("session_id", sessionID),
		zap.Int64("duration_ms", summary.DurationMs),
		zap.Int("sample_count", count))
	return summary, nil
}

// RecordSample appends one sample to an active session. It touches only the
// local store; transfer and cloud paths never run on this code path.
func (e *Engine) RecordSample(ctx context.Context, sessionID int64, heartRate, gyroX, gyroY, gyroZ *float64) (int64, error) {
	id, err := e.store.InsertSample(ctx, domain.SampleRecord{
		SessionID: sessionID,
		Timestamp: e.now().UTC(),
		HeartRate: heartRate,
		GyroX:     gyroX,
		GyroY:     gyroY,
		GyroZ:     gyroZ,
	})
	if err != nil {
		return 0, err
	}
	samplesRecordedCounter.Inc()
	return id, nil
}

// Session returns one session by id, or nil when it does not exist.
func (e *Engine) Session(ctx context.Context, sessionID int64) (*domain.RecordingSession, error) {
	return e.store.GetSession(ctx, sessionID)
}

// Recording reports whether any session is active right now.
func (e *Engine) Recording(ctx context.Context) (bool, error) {
	active, err := e.store.ActiveSession(ctx)
	if err != nil {
		return false, err
	}
	return active != nil, nil
}

// Rehydrate resumes an active session left behind by a crash or restart.
// Samples already written remain attached to the resumed session.
func (e *Engine) Rehydrate(ctx context.Context) (*domain.RecordingSession, error) {
	active, err := e.store.ActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		e.logger.Info("resuming active session after restart", zap.Int64("session_id", active.ID))
	}
	return active, nil
}

// Stats returns heart-rate aggregates for one session.
func (e *Engine) Stats(ctx context.Context, sessionID int64) (*domain.SessionStats, error) {
	return e.store.SessionStats(ctx, sessionID)
}

// PurgeSession removes a session and its samples on explicit user request.
func (e *Engine) PurgeSession(ctx context.Context, sessionID int64) error {
	return e.store.DeleteSession(ctx, sessionID)
}
