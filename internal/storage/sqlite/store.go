// Package sqlite provides the wearable's durable local store for recording
// sessions and their samples.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"example.com/wearsync/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed session/sample repository.
// Uses WAL mode with a single writer connection.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path, applying
// pragmas and the schema. Idempotent; safe to call on every startup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under the sampling loop's append rate.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CreateSession inserts a new active session and returns its id.
func (s *Store) CreateSession(ctx context.Context, start time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (start_time, is_active, is_synced) VALUES (?, 1, 0)`,
		start.UnixMilli(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CloseSession stamps end_time and clears is_active.
func (s *Store) CloseSession(ctx context.Context, id int64, end time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET end_time = ?, is_active = 0 WHERE id = ?`,
		end.UnixMilli(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ActiveSession returns the active session, or nil when idle. This query is
// the single authoritative source for "is anything recording".
func (s *Store) ActiveSession(ctx context.Context) (*domain.RecordingSession, error) {
	row := s.db.QueryRowContext(ctx,
		sessionColumns+` FROM sessions WHERE is_active = 1 LIMIT 1`)
	return scanSession(row)
}

// GetSession returns the session with the given id, or nil if absent.
func (s *Store) GetSession(ctx context.Context, id int64) (*domain.RecordingSession, error) {
	row := s.db.QueryRowContext(ctx,
		sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// InsertSample appends one immutable sample row.
func (s *Store) InsertSample(ctx context.Context, sample domain.SampleRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (session_id, timestamp, heart_rate, gyro_x, gyro_y, gyro_z)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sample.SessionID,
		sample.Timestamp.UnixMilli(),
		sample.HeartRate,
		sample.GyroX,
		sample.GyroY,
		sample.GyroZ,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SamplesForSession returns a session's samples in append order.
func (s *Store) SamplesForSession(ctx context.Context, sessionID int64) ([]domain.SampleRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, timestamp, heart_rate, gyro_x, gyro_y, gyro_z
         FROM samples WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.SampleRecord
	for rows.Next() {
		var (
			rec domain.SampleRecord
			ts  int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &ts, &rec.HeartRate, &rec.GyroX, &rec.GyroY, &rec.GyroZ); err != nil {
			return nil, err
		}
		rec.Timestamp = time.UnixMilli(ts).UTC()
		samples = append(samples, rec)
	}
	return samples, rows.Err()
}

// SampleCount counts the samples attached to a session.
func (s *Store) SampleCount(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM samples WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// UnsyncedClosedSessions returns every closed session not yet marked synced,
// oldest first.
func (s *Store) UnsyncedClosedSessions(ctx context.Context) ([]domain.RecordingSession, error) {
	rows, err := s.db.QueryContext(ctx,
		sessionColumns+` FROM sessions WHERE is_synced = 0 AND end_time IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.RecordingSession
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// MarkSynced records a confirmed transfer. Only the sync orchestrator calls
// this, and only after the transport reported acceptance.
func (s *Store) MarkSynced(ctx context.Context, id int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET is_synced = 1, synced_at = ? WHERE id = ?`,
		at.UnixMilli(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// SessionStats aggregates the heart-rate column for one session.
func (s *Store) SessionStats(ctx context.Context, sessionID int64) (*domain.SessionStats, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(heart_rate), COALESCE(MIN(heart_rate), 0), COALESCE(MAX(heart_rate), 0), COALESCE(AVG(heart_rate), 0)
         FROM samples WHERE session_id = ?`, sessionID)

	var stats domain.SessionStats
	if err := row.Scan(&stats.SampleCount, &stats.MinHeart, &stats.MaxHeart, &stats.AvgHeart); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DeleteSession removes a session; its samples cascade.
func (s *Store) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

const sessionColumns = `SELECT id, start_time, end_time, is_active, is_synced, synced_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row *sql.Row) (*domain.RecordingSession, error) {
	session, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

func scanSessionRow(scanner rowScanner) (*domain.RecordingSession, error) {
	var (
		session  domain.RecordingSession
		startMs  int64
		endMs    sql.NullInt64
		syncedMs sql.NullInt64
	)
	if err := scanner.Scan(&session.ID, &startMs, &endMs, &session.IsActive, &session.IsSynced, &syncedMs); err != nil {
		return nil, err
	}
	session.StartTime = time.UnixMilli(startMs).UTC()
	if endMs.Valid {
		end := time.UnixMilli(endMs.Int64).UTC()
		session.EndTime = &end
	}
	if syncedMs.Valid {
		synced := time.UnixMilli(syncedMs.Int64).UTC()
		session.SyncedAt = &synced
	}
	return &session, nil
}
