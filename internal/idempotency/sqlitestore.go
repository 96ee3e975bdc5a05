package idempotency

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	job_id      TEXT NOT NULL,
	playlist_id TEXT NOT NULL,
	stage       TEXT NOT NULL,
	batch_index INTEGER NOT NULL,
	record      TEXT NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (job_id, playlist_id)
);
CREATE INDEX IF NOT EXISTS idx_checkpoints_job ON checkpoints (job_id);
`

// SQLiteStore persists checkpoints in a SQLite database. The full record
// is stored serialized so a load round-trips exactly what was saved; the
// key columns exist for querying.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore bootstraps the checkpoint schema on the given database
// connection and returns a store backed by it.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(checkpointSchema); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save upserts the checkpoint record for its (jobID, playlistID) pair.
func (s *SQLiteStore) Save(checkpoint *Checkpoint) error {
	record, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	query := `
		INSERT INTO checkpoints (job_id, playlist_id, stage, batch_index, record, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, playlist_id) DO UPDATE SET
			stage = excluded.stage,
			batch_index = excluded.batch_index,
			record = excluded.record,
			updated_at = excluded.updated_at
	`

	_, err = s.db.Exec(query,
		checkpoint.JobID,
		checkpoint.PlaylistID,
		checkpoint.Stage,
		checkpoint.BatchIndex,
		string(record),
		checkpoint.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint for the pair, or (nil, nil) when absent.
func (s *SQLiteStore) Load(jobID, playlistID string) (*Checkpoint, error) {
	var record string
	err := s.db.QueryRow(
		"SELECT record FROM checkpoints WHERE job_id = ? AND playlist_id = ?",
		jobID, playlistID,
	).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal([]byte(record), &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes the checkpoint for the pair.
func (s *SQLiteStore) Delete(jobID, playlistID string) error {
	_, err := s.db.Exec(
		"DELETE FROM checkpoints WHERE job_id = ? AND playlist_id = ?",
		jobID, playlistID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// ListForJob returns every checkpoint stored for the job, ordered by
// playlist identifier for stable output.
func (s *SQLiteStore) ListForJob(jobID string) ([]*Checkpoint, error) {
	rows, err := s.db.Query(
		"SELECT record FROM checkpoints WHERE job_id = ? ORDER BY playlist_id",
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var checkpoints []*Checkpoint
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}

		var checkpoint Checkpoint
		if err := json.Unmarshal([]byte(record), &checkpoint); err != nil {
			return nil, fmt.Errorf("failed to parse checkpoint: %w", err)
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkpoint rows: %w", err)
	}
	return checkpoints, nil
}
