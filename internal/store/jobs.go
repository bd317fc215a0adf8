package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reverie/internal/jobs"
)

// CreateDurationJob enqueues a pending duration-extraction job for a video.
// Duplicate enqueues for the same video are allowed; avoiding them is the
// caller's responsibility.
func (s *Store) CreateDurationJob(ctx context.Context, videoID uuid.UUID) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO video_duration_extraction_jobs (video_id, status) VALUES ($1, 'pending')`,
		videoID)
	if err != nil {
		return fmt.Errorf("create duration job: %w", err)
	}
	return nil
}

// ClaimNextDurationJob atomically claims the oldest eligible job: pending,
// or processing with started_at older than now minus stuckThreshold (a
// worker that crashed mid-job leaves such a row behind, and it becomes
// reclaimable once the threshold elapses).
//
// The select and the status update run in one transaction with
// FOR UPDATE SKIP LOCKED, so two concurrent claimers never receive the same
// row and a held lock never blocks other workers. Returns (nil, nil) when
// no row is eligible.
func (s *Store) ClaimNextDurationJob(ctx context.Context, stuckThreshold time.Duration) (*jobs.DurationJob, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stuckBefore := time.Now().UTC().Add(-stuckThreshold)

	var job jobs.DurationJob
	var startedAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT id, video_id, status, created_at, started_at
		   FROM video_duration_extraction_jobs
		  WHERE status = 'pending'
		     OR (status = 'processing' AND started_at < $1)
		  ORDER BY id
		  LIMIT 1
		  FOR UPDATE SKIP LOCKED`,
		stuckBefore,
	).Scan(&job.ID, &job.VideoID, &job.Status, &job.CreatedAt, &startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select claimable job: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE video_duration_extraction_jobs
		    SET status = 'processing', started_at = $1
		  WHERE id = $2`,
		now, job.ID)
	if err != nil {
		return nil, fmt.Errorf("mark job processing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}

	job.Status = jobs.StatusProcessing
	job.StartedAt = &now
	return &job, nil
}

// MarkDurationJobCompleted moves a job to its completed terminal state.
// A no-op if the job is already terminal.
func (s *Store) MarkDurationJobCompleted(ctx context.Context, jobID int64) error {
	return s.markDurationJob(ctx, jobID, jobs.StatusCompleted)
}

// MarkDurationJobFailed moves a job to its failed terminal state.
// A no-op if the job is already terminal.
func (s *Store) MarkDurationJobFailed(ctx context.Context, jobID int64) error {
	return s.markDurationJob(ctx, jobID, jobs.StatusFailed)
}

func (s *Store) markDurationJob(ctx context.Context, jobID int64, status jobs.Status) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE video_duration_extraction_jobs
		    SET status = $1
		  WHERE id = $2
		    AND status NOT IN ('completed', 'failed')`,
		string(status), jobID)
	if err != nil {
		return fmt.Errorf("mark job %s: %w", status, err)
	}
	return nil
}

// GetDurationJob fetches a single job row, mainly for tests and operator
// tooling. Returns (nil, nil) when the job does not exist.
func (s *Store) GetDurationJob(ctx context.Context, jobID int64) (*jobs.DurationJob, error) {
	var job jobs.DurationJob
	var startedAt sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT id, video_id, status, created_at, started_at
		   FROM video_duration_extraction_jobs
		  WHERE id = $1`,
		jobID,
	).Scan(&job.ID, &job.VideoID, &job.Status, &job.CreatedAt, &startedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get duration job: %w", err)
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	return &job, nil
}

// DeleteExpiredDurationJobs deletes terminal jobs of the given status older
// than cutoff and returns the number of rows removed.
func (s *Store) DeleteExpiredDurationJobs(ctx context.Context, status jobs.Status, cutoff time.Time) (int64, error) {
	if !status.Terminal() {
		return 0, fmt.Errorf("refusing to expire non-terminal status %q", status)
	}
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM video_duration_extraction_jobs
		  WHERE status = $1 AND created_at < $2`,
		string(status), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired jobs: %w", err)
	}
	return res.RowsAffected()
}
