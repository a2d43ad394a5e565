package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/wearsync/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func ptr(v float64) *float64 { return &v }

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	start := time.UnixMilli(1700000000000).UTC()

	id, err := store.CreateSession(ctx, start)
	require.NoError(t, err)

	active, err := store.ActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	require.Equal(t, id, active.ID)
	require.Equal(t, start, active.StartTime)
	require.True(t, active.IsActive)
	require.Nil(t, active.EndTime)

	end := start.Add(time.Minute)
	require.NoError(t, store.CloseSession(ctx, id, end))

	active, err = store.ActiveSession(ctx)
	require.NoError(t, err)
	require.Nil(t, active)

	session, err := store.GetSession(ctx, id)
	require.NoError(t, err)
	require.False(t, session.IsActive)
	require.Equal(t, end, *session.EndTime)
	require.False(t, session.IsSynced)
}

func TestCloseUnknownSession(t *testing.T) {
	store := newTestStore(t)
	err := store.CloseSession(context.Background(), 42, time.Now())
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSamplesKeepAppendOrderAndNulls(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, time.Now().UTC())
	require.NoError(t, err)

	base := time.UnixMilli(1700000000000).UTC()
	_, err = store.InsertSample(ctx, domain.SampleRecord{
		SessionID: id, Timestamp: base, HeartRate: ptr(70), GyroX: ptr(0.1), GyroY: ptr(0.2), GyroZ: ptr(0.3),
	})
	require.NoError(t, err)
	_, err = store.InsertSample(ctx, domain.SampleRecord{
		SessionID: id, Timestamp: base.Add(20 * time.Millisecond),
	})
	require.NoError(t, err)

	samples, err := store.SamplesForSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, base, samples[0].Timestamp)
	require.Equal(t, 70.0, *samples[0].HeartRate)
	require.Nil(t, samples[1].HeartRate)
	require.Nil(t, samples[1].GyroX)

	count, err := store.SampleCount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestUnsyncedClosedSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.UnixMilli(1700000000000).UTC()

	closedUnsynced, err := store.CreateSession(ctx, base)
	require.NoError(t, err)
	require.NoError(t, store.CloseSession(ctx, closedUnsynced, base.Add(time.Minute)))

	closedSynced, err := store.CreateSession(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.NoError(t, store.CloseSession(ctx, closedSynced, base.Add(3*time.Minute)))
	require.NoError(t, store.MarkSynced(ctx, closedSynced, base.Add(4*time.Minute)))

	// An active session is never transfer-eligible.
	_, err = store.CreateSession(ctx, base.Add(5*time.Minute))
	require.NoError(t, err)

	pending, err := store.UnsyncedClosedSessions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, closedUnsynced, pending[0].ID)

	synced, err := store.GetSession(ctx, closedSynced)
	require.NoError(t, err)
	require.True(t, synced.IsSynced)
	require.NotNil(t, synced.SyncedAt)
}

func TestMarkSyncedUnknownSession(t *testing.T) {
	store := newTestStore(t)
	err := store.MarkSynced(context.Background(), 42, time.Now())
	require.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDeleteSessionCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, time.Now().UTC())
	require.NoError(t, err)
	_, err = store.InsertSample(ctx, domain.SampleRecord{SessionID: id, Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, id))

	count, err := store.SampleCount(ctx, id)
	require.NoError(t, err)
	require.Zero(t, count)

	require.ErrorIs(t, store.DeleteSession(ctx, id), domain.ErrSessionNotFound)
}

func TestSessionStatsIgnoresMissingHeartRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.CreateSession(ctx, time.Now().UTC())
	require.NoError(t, err)

	base := time.Now().UTC()
	for i, hr := range []*float64{ptr(55), ptr(95), nil, ptr(75)} {
		_, err := store.InsertSample(ctx, domain.SampleRecord{
			SessionID: id,
			Timestamp: base.Add(time.Duration(i) * 20 * time.Millisecond),
			HeartRate: hr,
		})
		require.NoError(t, err)
	}

	stats, err := store.SessionStats(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 3, stats.SampleCount)
	require.Equal(t, 55.0, stats.MinHeart)
	require.Equal(t, 95.0, stats.MaxHeart)
	require.Equal(t, 75.0, stats.AvgHeart)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := Open(path)
	require.NoError(t, err)
	id, err := store.CreateSession(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	session, err := store.GetSession(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, session)
}
