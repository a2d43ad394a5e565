package domain

import (
	"fmt"
	"time"
)

// SamplePoint is the wire form of one sample inside a transfer payload.
// Timestamps travel as Unix milliseconds so both devices serialize the exact
// same bytes regardless of local time formatting.
type SamplePoint struct {
	Timestamp int64    `json:"timestamp"`
	HeartRate *float64 `json:"heartRate,omitempty"`
	GyroX     *float64 `json:"gyroX,omitempty"`
	GyroY     *float64 `json:"gyroY,omitempty"`
	GyroZ     *float64 `json:"gyroZ,omitempty"`
}

// SessionTransferPayload is the bulk-transfer wire contract. Both devices
// serialize and parse this shape independently; field names and the
// millisecond timestamp encoding are fixed.
type SessionTransferPayload struct {
	SessionID int64         `json:"sessionId"`
	StartTime int64         `json:"startTime"`
	EndTime   int64         `json:"endTime"`
	Samples   []SamplePoint `json:"samples"`
}

// BuildTransferPayload packages a closed session and its samples for bulk
// transfer. Active sessions are not transferable.
func BuildTransferPayload(session RecordingSession, samples []SampleRecord) (*SessionTransferPayload, error) {
	if !session.Closed() {
		return nil, fmt.Errorf("session %d: %w", session.ID, ErrNotTransferable)
	}

	points := make([]SamplePoint, 0, len(samples))
	for _, sample := range samples {
		points = append(points, SamplePoint{
			Timestamp: sample.Timestamp.UnixMilli(),
			HeartRate: sample.HeartRate,
			GyroX:     sample.GyroX,
			GyroY:     sample.GyroY,
			GyroZ:     sample.GyroZ,
		})
	}

	return &SessionTransferPayload{
		SessionID: session.ID,
		StartTime: session.StartTime.UnixMilli(),
		EndTime:   session.EndTime.UnixMilli(),
		Samples:   points,
	}, nil
}

// Record converts a wire sample back into a SampleRecord owned by sessionID.
func (p SamplePoint) Record(sessionID int64) SampleRecord {
	return SampleRecord{
		SessionID: sessionID,
		Timestamp: time.UnixMilli(p.Timestamp).UTC(),
		HeartRate: p.HeartRate,
		GyroX:     p.GyroX,
		GyroY:     p.GyroY,
		GyroZ:     p.GyroZ,
	}
}

// SessionDocKey is the deterministic cloud key for a session document. The
// session identity here is the companion-minted CloudID, stable across
// re-uploads, which is what makes cloud writes idempotent upserts.
func SessionDocKey(userID, cloudID string) string {
	return fmt.Sprintf("%s_%s", userID, cloudID)
}

// SampleDocKey is the deterministic cloud key for one sample document.
func SampleDocKey(userID, cloudID string, timestampMs int64) string {
	return fmt.Sprintf("%s_%s_%d", userID, cloudID, timestampMs)
}
