package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	maxPageSize      = 100
)

// Insert stores a new pending job and returns the persisted row. The URL
// check and the insert are one statement, so concurrent inserts for a URL
// leave at most one non-failed job; the losers get a *DuplicateURLError.
func (s *Store) Insert(ctx context.Context, in NewJob) (*Job, error) {
	if strings.TrimSpace(in.JobID) == "" {
		return nil, errors.New("job id is required")
	}
	if strings.TrimSpace(in.URL) == "" {
		return nil, errors.New("job url is required")
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(ctx,
		`INSERT INTO jobs (job_id, url, source, title, subtitle, similarity_threshold,
            min_interval_seconds, skip_first_seconds, fill_mode, image_format, image_quality,
            extra_download_args, file_pattern, status, created_at, updated_at)
         SELECT `+makePlaceholders(16)+`
         WHERE NOT EXISTS (SELECT 1 FROM jobs WHERE url = ? AND status != ?)`,
		in.JobID,
		in.URL,
		nullableString(in.Source),
		nullableString(in.Title),
		nullableString(in.Subtitle),
		in.SimilarityThreshold,
		in.MinIntervalSeconds,
		in.SkipFirstSeconds,
		boolToInt(in.FillMode),
		in.ImageFormat,
		in.ImageQuality,
		encodeList(in.ExtraDownloadArgs),
		nullableString(in.FilePattern),
		StatusPending,
		now,
		now,
		in.URL,
		StatusFailed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateJobID
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	} else if affected == 0 {
		return nil, s.duplicateURL(ctx, in.URL, "")
	}
	return s.GetByJobID(ctx, in.JobID)
}

// duplicateURL builds the error for a URL held by another non-failed job.
func (s *Store) duplicateURL(ctx context.Context, url, excludeJobID string) error {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE url = ? AND status != ? AND job_id != ?
         ORDER BY created_at DESC, id DESC LIMIT 1`, url, StatusFailed, excludeJobID)
	existing, err := scanJob(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("find active job by url: %w", err)
	}
	return &DuplicateURLError{Existing: existing}
}

// GetByJobID fetches a job by its public identifier. Missing jobs return nil, nil.
func (s *Store) GetByJobID(ctx context.Context, jobID string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE job_id = ?`, jobID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return job, nil
}

// FindByURL returns the jobs recorded for url, newest first.
func (s *Store) FindByURL(ctx context.Context, url string) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE url = ? ORDER BY created_at DESC, id DESC`, url)
	if err != nil {
		return nil, fmt.Errorf("find jobs by url: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// FindActiveByURL returns the newest non-failed job for url, or nil.
func (s *Store) FindActiveByURL(ctx context.Context, url string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE url = ? AND status != ?
         ORDER BY created_at DESC, id DESC LIMIT 1`, url, StatusFailed)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active job by url: %w", err)
	}
	return job, nil
}

// List returns the most recently created jobs. limit is clamped to 1..200
// with 0 meaning the default of 50. Optional statuses filter the result.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Job, error) {
	limit = ClampLimit(limit)
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ClampLimit normalizes a list limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

// ListCompleted pages through completed jobs, most recently completed first.
// search matches title, subtitle or url case-insensitively.
func (s *Store) ListCompleted(ctx context.Context, page, pageSize int, search string) (*Page, error) {
	ctx = ensureContext(ctx)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	where := `status = ?`
	args := []any{StatusCompleted}
	if term := strings.TrimSpace(search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		where += ` AND (title LIKE ? ESCAPE '\' OR subtitle LIKE ? ESCAPE '\' OR url LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM jobs WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count completed jobs: %w", err)
	}

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE ` + where +
		` ORDER BY completed_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, pageSize, (page-1)*pageSize)...)
	if err != nil {
		return nil, fmt.Errorf("list completed jobs: %w", err)
	}
	defer rows.Close()
	items, err := scanJobs(rows)
	if err != nil {
		return nil, fmt.Errorf("scan completed jobs: %w", err)
	}
	if items == nil {
		items = []*Job{}
	}
	return &Page{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// CountByStatus returns the number of jobs in each status. Every status is
// present in the map.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job counts: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
