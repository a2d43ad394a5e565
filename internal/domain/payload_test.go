package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildTransferPayloadRejectsActiveSession(t *testing.T) {
	session := RecordingSession{
		ID:        7,
		StartTime: time.Now().UTC(),
		IsActive:  true,
	}

	payload, err := BuildTransferPayload(session, nil)
	require.Nil(t, payload)
	require.ErrorIs(t, err, ErrNotTransferable)
}

func TestBuildTransferPayloadPreservesSampleOrder(t *testing.T) {
	start := time.UnixMilli(1700000000000).UTC()
	end := start.Add(time.Minute)
	session := RecordingSession{ID: 7, StartTime: start, EndTime: &end}

	hr := 71.0
	samples := []SampleRecord{
		{SessionID: 7, Timestamp: start.Add(20 * time.Millisecond), HeartRate: &hr},
		{SessionID: 7, Timestamp: start.Add(40 * time.Millisecond), HeartRate: &hr},
		{SessionID: 7, Timestamp: start.Add(60 * time.Millisecond), HeartRate: &hr},
	}

	payload, err := BuildTransferPayload(session, samples)
	require.NoError(t, err)
	require.Equal(t, int64(7), payload.SessionID)
	require.Equal(t, start.UnixMilli(), payload.StartTime)
	require.Equal(t, end.UnixMilli(), payload.EndTime)
	require.Len(t, payload.Samples, 3)
	for i := 1; i < len(payload.Samples); i++ {
		require.Greater(t, payload.Samples[i].Timestamp, payload.Samples[i-1].Timestamp)
	}
}

func TestDocKeysAreDeterministic(t *testing.T) {
	require.Equal(t, "user-1_abc", SessionDocKey("user-1", "abc"))
	require.Equal(t, "user-1_abc_1700000000020", SampleDocKey("user-1", "abc", 1700000000020))
}
