// Package domain defines the core recording and synchronization model shared
// by the wearable and companion processes.
package domain

import "time"

// RecordingSession is one contiguous recording interval on the wearable.
// EndTime is nil while the session is still being recorded.
type RecordingSession struct {
	ID        int64
	StartTime time.Time
	EndTime   *time.Time
	IsActive  bool
	IsSynced  bool
	SyncedAt  *time.Time
}

// Closed reports whether the session has been stopped and is eligible for transfer.
func (s RecordingSession) Closed() bool {
	return s.EndTime != nil && !s.IsActive
}

// SampleRecord is a single timestamped biometric/motion sample. All sensor
// fields are optional; a sample may carry heart rate only, gyro only, or both.
// Rows are immutable once written.
type SampleRecord struct {
	ID        int64
	SessionID int64
	Timestamp time.Time
	HeartRate *float64
	GyroX     *float64
	GyroY     *float64
	GyroZ     *float64
}

// CompanionSession is the companion-side record of an ingested session.
// CloudID is minted once on ingestion and reused for every upload so that
// re-uploading the same session overwrites its cloud documents in place.
type CompanionSession struct {
	ID              int64
	CloudID         string
	UserID          string
	SourceSessionID int64
	StartTime       time.Time
	EndTime         time.Time
	ReceivedAt      time.Time
	DataPointCount  int
	CloudSynced     bool
}

// SessionStats aggregates the heart-rate column of one session.
type SessionStats struct {
	SampleCount int
	MinHeart    float64
	MaxHeart    float64
	AvgHeart    float64
}

// StopSummary is returned when a recording session is closed.
type StopSummary struct {
	SessionID   int64
	DurationMs  int64
	SampleCount int
}
