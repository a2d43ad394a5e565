// Package postgres provides the companion device's durable store for
// ingested sessions and samples.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/wearsync/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Repository provides Postgres-backed persistence for companion sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema applies the schema. Idempotent; called on startup.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, schemaSQL)
	return err
}

const sessionColumns = `id, cloud_id, user_id, source_session_id, start_time, end_time, received_at, data_point_count, cloud_synced`

// IngestSession inserts the session row and every sample row in a single
// transaction. A failure anywhere rolls the whole unit back; the store never
// holds a session without its samples or vice versa.
func (r *Repository) IngestSession(ctx context.Context, session domain.CompanionSession, samples []domain.SampleRecord) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	const insertSession = `INSERT INTO companion_sessions
        (cloud_id, user_id, source_session_id, start_time, end_time, received_at, data_point_count)
        VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`

	var sessionID int64
	err = tx.QueryRow(ctx, insertSession,
		session.CloudID,
		session.UserID,
		session.SourceSessionID,
		session.StartTime,
		session.EndTime,
		session.ReceivedAt,
		session.DataPointCount,
	).Scan(&sessionID)
	if err != nil {
		return 0, err
	}

	if len(samples) > 0 {
		rows := make([][]any, 0, len(samples))
		for _, sample := range samples {
			rows = append(rows, []any{sessionID, sample.Timestamp, sample.HeartRate, sample.GyroX, sample.GyroY, sample.GyroZ})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"companion_samples"},
			[]string{"session_id", "timestamp", "heart_rate", "gyro_x", "gyro_y", "gyro_z"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// ListSessions returns every ingested session, newest start first.
func (r *Repository) ListSessions(ctx context.Context) ([]domain.CompanionSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM companion_sessions ORDER BY start_time DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// GetSession returns one session by local id, or nil if absent.
func (r *Repository) GetSession(ctx context.Context, id int64) (*domain.CompanionSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM companion_sessions WHERE id=$1`, id)

	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SamplesForSession returns a session's samples in timeline order.
func (r *Repository) SamplesForSession(ctx context.Context, sessionID int64) ([]domain.SampleRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, timestamp, heart_rate, gyro_x, gyro_y, gyro_z
         FROM companion_samples WHERE session_id=$1 ORDER BY timestamp, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.SampleRecord
	for rows.Next() {
		var rec domain.SampleRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Timestamp, &rec.HeartRate, &rec.GyroX, &rec.GyroY, &rec.GyroZ); err != nil {
			return nil, err
		}
		samples = append(samples, rec)
	}
	return samples, rows.Err()
}

// SampleCount counts the stored samples for a session.
func (r *Repository) SampleCount(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM companion_samples WHERE session_id=$1`, sessionID).Scan(&count)
	return count, err
}

// UnsyncedToCloud lists sessions not yet confirmed uploaded, oldest first.
func (r *Repository) UnsyncedToCloud(ctx context.Context) ([]domain.CompanionSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM companion_sessions WHERE cloud_synced=FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSessions(rows)
}

// MarkCloudSynced records a completed upload for bookkeeping.
func (r *Repository) MarkCloudSynced(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE companion_sessions SET cloud_synced=TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session; samples cascade.
func (r *Repository) DeleteSession(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companion_sessions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(scanner rowScanner) (*domain.CompanionSession, error) {
	var (
		session  domain.CompanionSession
		start    time.Time
		end      time.Time
		received time.Time
	)
	if err := scanner.Scan(
		&session.ID, &session.CloudID, &session.UserID, &session.SourceSessionID,
		&start, &end, &received, &session.DataPointCount, &session.CloudSynced,
	); err != nil {
		return nil, err
	}
	session.StartTime = start.UTC()
	session.EndTime = end.UTC()
	session.ReceivedAt = received.UTC()
	return &session, nil
}

func scanSessions(rows pgx.Rows) ([]domain.CompanionSession, error) {
	var sessions []domain.CompanionSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}
