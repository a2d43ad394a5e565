package transfer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/wearsync/internal/domain"
)

// LiveSample is the decoded form of one live-telemetry update.
type LiveSample struct {
	HeartRate float64 `json:"heartRate"`
	GyroX     float64 `json:"gyroX"`
	GyroY     float64 `json:"gyroY"`
	GyroZ     float64 `json:"gyroZ"`
	Timestamp int64   `json:"timestamp"`
}

// Fields returns the keyed representation sent through Transport.PutItem.
func (s LiveSample) Fields() map[string]any {
	return map[string]any{
		"heartRate": s.HeartRate,
		"gyroX":     s.GyroX,
		"gyroY":     s.GyroY,
		"gyroZ":     s.GyroZ,
		"timestamp": s.Timestamp,
	}
}

// EncodeSessionPayload serializes the bulk-transfer wire contract.
func EncodeSessionPayload(payload *domain.SessionTransferPayload) ([]byte, error) {
	return json.Marshal(payload)
}

// DecodeSessionPayload parses and validates a bulk-transfer payload. The
// decode is all-or-nothing: any unknown field, missing identity, or
// inconsistent time range rejects the whole payload.
func DecodeSessionPayload(data []byte) (*domain.SessionTransferPayload, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var payload domain.SessionTransferPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode session payload: %w", err)
	}
	if decoder.More() {
		return nil, errors.New("decode session payload: trailing data")
	}

	if payload.SessionID <= 0 {
		return nil, errors.New("decode session payload: missing session id")
	}
	if payload.StartTime <= 0 || payload.EndTime <= 0 {
		return nil, errors.New("decode session payload: missing time range")
	}
	if payload.EndTime < payload.StartTime {
		return nil, errors.New("decode session payload: end before start")
	}
	for i, sample := range payload.Samples {
		if sample.Timestamp <= 0 {
			return nil, fmt.Errorf("decode session payload: sample %d missing timestamp", i)
		}
	}
	return &payload, nil
}

// DecodeLiveSample parses a live-telemetry update.
func DecodeLiveSample(data []byte) (*LiveSample, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()

	var sample LiveSample
	if err := decoder.Decode(&sample); err != nil {
		return nil, fmt.Errorf("decode live sample: %w", err)
	}
	if sample.Timestamp <= 0 {
		return nil, errors.New("decode live sample: missing timestamp")
	}
	return &sample, nil
}
