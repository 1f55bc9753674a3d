package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InterruptedMessage is recorded on jobs found running at startup.
const InterruptedMessage = "Interrupted by daemon restart"

// ClaimNext atomically moves the oldest pending job to running. It returns
// nil, nil when nothing is pending or another job is already running.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs SET status = ?, started_at = ?, updated_at = ?
             WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1)
               AND NOT EXISTS (SELECT 1 FROM jobs WHERE status = ?)
             RETURNING `+jobColumns,
			StatusRunning, now, now, StatusPending, StatusRunning,
		)
		claimed, err := scanJob(row)
		if err != nil {
			return err
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			// Lost a race with a concurrent claim.
			return nil, nil
		}
		return nil, fmt.Errorf("claim next job: %w", err)
	}
	return job, nil
}

// MarkCompleted records a successful run.
func (s *Store) MarkCompleted(ctx context.Context, jobID string, c Completion) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = NULL,
            title = CASE WHEN COALESCE(title, '') = '' THEN ? ELSE title END,
            subtitle = CASE WHEN COALESCE(subtitle, '') = '' THEN ? ELSE subtitle END,
            job_dir = ?, video_path = ?, video_files = ?, ppt_path = ?, slides_json_path = ?,
            screenshots_dir = ?, command = ?, stdout = ?, stderr = ?,
            video_duration_seconds = ?, fps = ?, slide_count = ?,
            completed_at = ?, updated_at = ?
         WHERE job_id = ?`,
		StatusCompleted,
		nullableString(c.Title),
		nullableString(c.Subtitle),
		nullableString(c.JobDir),
		nullableString(c.VideoPath),
		encodeList(c.VideoFiles),
		nullableString(c.PPTPath),
		nullableString(c.SlidesJSONPath),
		nullableString(c.ScreenshotsDir),
		encodeList(c.Command),
		nullableString(c.Stdout),
		nullableString(c.Stderr),
		c.VideoDurationSeconds,
		c.FPS,
		c.SlideCount,
		now,
		now,
		jobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %s completed: %w", jobID, err)
	}
	return requireAffected(res, jobID)
}

// MarkFailed records a failed run with its error message.
func (s *Store) MarkFailed(ctx context.Context, jobID, message string) error {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE job_id = ?`,
		StatusFailed, message, now, now, jobID,
	)
	if err != nil {
		return fmt.Errorf("mark job %s failed: %w", jobID, err)
	}
	return requireAffected(res, jobID)
}

// ResetForReprocess returns a finished or pending job to pending and clears
// its run results. created_at is kept so the job keeps its queue position.
// The reset is refused with a *DuplicateURLError while another non-failed
// job holds the same URL.
func (s *Store) ResetForReprocess(ctx context.Context, jobID string) (*Job, error) {
	job, err := s.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Status == StatusRunning {
		return nil, ErrJobRunning
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, started_at = NULL, completed_at = NULL, error_message = NULL,
            job_dir = NULL, video_path = NULL, video_files = NULL, ppt_path = NULL,
            slides_json_path = NULL, screenshots_dir = NULL, command = NULL, stdout = NULL,
            stderr = NULL, video_duration_seconds = NULL, fps = NULL, slide_count = NULL,
            updated_at = ?
         WHERE job_id = ? AND status != ?
           AND NOT EXISTS (SELECT 1 FROM jobs AS other
                           WHERE other.url = jobs.url AND other.job_id != jobs.job_id AND other.status != ?)`,
		StatusPending, formatTime(time.Now()), jobID, StatusRunning, StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("reset job %s: %w", jobID, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		current, err := s.GetByJobID(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrJobNotFound
		}
		if current.Status == StatusRunning {
			// Claimed between the read and the update.
			return nil, ErrJobRunning
		}
		return nil, s.duplicateURL(ctx, current.URL, jobID)
	}
	return s.GetByJobID(ctx, jobID)
}

// RecoverRunning fails jobs left running by a previous process.
func (s *Store) RecoverRunning(ctx context.Context) (int64, error) {
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ?, updated_at = ? WHERE status = ?`,
		StatusFailed, InterruptedMessage, now, now, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("recover running jobs: %w", err)
	}
	return res.RowsAffected()
}

func requireAffected(res sql.Result, jobID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", jobID, err)
	}
	if affected == 0 {
		return ErrJobNotFound
	}
	return nil
}
