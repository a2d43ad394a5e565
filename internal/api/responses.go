package api

import (
	"encoding/json"
	"net/http"
	"time"

	"example.com/wearsync/internal/cloud"
	"example.com/wearsync/internal/domain"
)

// SessionView is the companion API's representation of an ingested session.
type SessionView struct {
	ID              int64     `json:"id"`
	CloudID         string    `json:"cloud_id"`
	UserID          string    `json:"user_id"`
	SourceSessionID int64     `json:"source_session_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ReceivedAt      time.Time `json:"received_at"`
	DataPointCount  int       `json:"data_point_count"`
	CloudSynced     bool      `json:"cloud_synced"`
}

// SampleView is one sample row.
type SampleView struct {
	Timestamp time.Time `json:"timestamp"`
	HeartRate *float64  `json:"heart_rate,omitempty"`
	GyroX     *float64  `json:"gyro_x,omitempty"`
	GyroY     *float64  `json:"gyro_y,omitempty"`
	GyroZ     *float64  `json:"gyro_z,omitempty"`
}

// CloudSessionView mirrors a cloud session document.
type CloudSessionView struct {
	CloudID         string    `json:"cloud_id"`
	SourceSessionID int64     `json:"source_session_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DataPointCount  int       `json:"data_point_count"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

func toSessionView(s domain.CompanionSession) SessionView {
	return SessionView{
		ID:              s.ID,
		CloudID:         s.CloudID,
		UserID:          s.UserID,
		SourceSessionID: s.SourceSessionID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		ReceivedAt:      s.ReceivedAt,
		DataPointCount:  s.DataPointCount,
		CloudSynced:     s.CloudSynced,
	}
}

func toSampleView(rec domain.SampleRecord) SampleView {
	return SampleView{
		Timestamp: rec.Timestamp,
		HeartRate: rec.HeartRate,
		GyroX:     rec.GyroX,
		GyroY:     rec.GyroY,
		GyroZ:     rec.GyroZ,
	}
}

func toCloudSessionView(s cloud.CloudSession) CloudSessionView {
	return CloudSessionView{
		CloudID:         s.CloudID,
		SourceSessionID: s.SourceSessionID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DataPointCount:  s.DataPointCount,
		UploadedAt:      s.UploadedAt,
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"error":  code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
