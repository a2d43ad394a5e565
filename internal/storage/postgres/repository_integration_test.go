//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/wearsync/internal/domain"
)

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("wearsync"),
		postgrescontainer.WithUsername("companion"),
		postgrescontainer.WithPassword("companion"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	return repo
}

func testSamples(count int) []domain.SampleRecord {
	base := time.UnixMilli(1700000000000).UTC()
	hr := 72.0
	samples := make([]domain.SampleRecord, 0, count)
	for i := 0; i < count; i++ {
		samples = append(samples, domain.SampleRecord{
			Timestamp: base.Add(time.Duration(i) * 20 * time.Millisecond),
			HeartRate: &hr,
		})
	}
	return samples
}

func TestIngestSessionIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	start := time.UnixMilli(1700000000000).UTC()
	session := domain.CompanionSession{
		CloudID:         uuid.NewString(),
		UserID:          "user-1",
		SourceSessionID: 7,
		StartTime:       start,
		EndTime:         start.Add(time.Minute),
		ReceivedAt:      start.Add(2 * time.Minute),
		DataPointCount:  3,
	}

	id, err := repo.IngestSession(ctx, session, testSamples(3))
	require.NoError(t, err)
	require.NotZero(t, id)

	stored, err := repo.GetSession(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, session.CloudID, stored.CloudID)
	require.Equal(t, session.StartTime, stored.StartTime)
	require.False(t, stored.CloudSynced)

	samples, err := repo.SamplesForSession(ctx, id)
	require.NoError(t, err)
	require.Len(t, samples, 3)
	require.Equal(t, testSamples(3)[0].Timestamp, samples[0].Timestamp)

	// A duplicate cloud_id violates the unique constraint and leaves no
	// samples behind: the transaction rolls back whole.
	before, err := repo.SampleCount(ctx, id)
	require.NoError(t, err)
	_, err = repo.IngestSession(ctx, session, testSamples(5))
	require.Error(t, err)
	after, err := repo.SampleCount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, before, after)

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
}

func TestCloudSyncBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	start := time.UnixMilli(1700000000000).UTC()
	first, err := repo.IngestSession(ctx, domain.CompanionSession{
		CloudID: uuid.NewString(), UserID: "user-1", SourceSessionID: 1,
		StartTime: start, EndTime: start.Add(time.Minute), ReceivedAt: start, DataPointCount: 0,
	}, nil)
	require.NoError(t, err)
	second, err := repo.IngestSession(ctx, domain.CompanionSession{
		CloudID: uuid.NewString(), UserID: "user-1", SourceSessionID: 2,
		StartTime: start.Add(time.Hour), EndTime: start.Add(2 * time.Hour), ReceivedAt: start, DataPointCount: 0,
	}, nil)
	require.NoError(t, err)

	require.NoError(t, repo.MarkCloudSynced(ctx, first))

	pending, err := repo.UnsyncedToCloud(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second, pending[0].ID)

	// Newest start first.
	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, second, sessions[0].ID)

	require.ErrorIs(t, repo.MarkCloudSynced(ctx, 9999), domain.ErrSessionNotFound)
}

func TestDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	start := time.UnixMilli(1700000000000).UTC()
	id, err := repo.IngestSession(ctx, domain.CompanionSession{
		CloudID: uuid.NewString(), UserID: "user-1", SourceSessionID: 1,
		StartTime: start, EndTime: start.Add(time.Minute), ReceivedAt: start, DataPointCount: 4,
	}, testSamples(4))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSession(ctx, id))

	count, err := repo.SampleCount(ctx, id)
	require.NoError(t, err)
	require.Zero(t, count)
	require.ErrorIs(t, repo.DeleteSession(ctx, id), domain.ErrSessionNotFound)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
