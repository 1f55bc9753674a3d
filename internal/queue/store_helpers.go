package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

const jobColumns = "id, job_id, url, source, title, subtitle, similarity_threshold, min_interval_seconds, skip_first_seconds, fill_mode, image_format, image_quality, extra_download_args, file_pattern, status, job_dir, error_message, video_path, video_files, ppt_path, slides_json_path, screenshots_dir, command, stdout, stderr, video_duration_seconds, fps, slide_count, created_at, updated_at, started_at, completed_at"

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		job            Job
		source         sql.NullString
		title          sql.NullString
		subtitle       sql.NullString
		fillMode       int64
		extraArgs      sql.NullString
		filePattern    sql.NullString
		statusStr      string
		jobDir         sql.NullString
		errorMessage   sql.NullString
		videoPath      sql.NullString
		videoFiles     sql.NullString
		pptPath        sql.NullString
		slidesJSON     sql.NullString
		screenshotsDir sql.NullString
		command        sql.NullString
		stdout         sql.NullString
		stderr         sql.NullString
		duration       sql.NullFloat64
		fps            sql.NullFloat64
		slideCount     sql.NullInt64
		createdRaw     string
		updatedRaw     string
		startedRaw     sql.NullString
		completedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&job.ID,
		&job.JobID,
		&job.URL,
		&source,
		&title,
		&subtitle,
		&job.SimilarityThreshold,
		&job.MinIntervalSeconds,
		&job.SkipFirstSeconds,
		&fillMode,
		&job.ImageFormat,
		&job.ImageQuality,
		&extraArgs,
		&filePattern,
		&statusStr,
		&jobDir,
		&errorMessage,
		&videoPath,
		&videoFiles,
		&pptPath,
		&slidesJSON,
		&screenshotsDir,
		&command,
		&stdout,
		&stderr,
		&duration,
		&fps,
		&slideCount,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job.Source = source.String
	job.Title = title.String
	job.Subtitle = subtitle.String
	job.FillMode = fillMode != 0
	job.ExtraDownloadArgs = decodeList(extraArgs.String)
	job.FilePattern = filePattern.String
	job.Status = Status(statusStr)
	job.JobDir = jobDir.String
	job.ErrorMessage = errorMessage.String
	job.VideoPath = videoPath.String
	job.VideoFiles = decodeList(videoFiles.String)
	job.PPTPath = pptPath.String
	job.SlidesJSONPath = slidesJSON.String
	job.ScreenshotsDir = screenshotsDir.String
	job.Command = decodeList(command.String)
	job.Stdout = stdout.String
	job.Stderr = stderr.String
	if duration.Valid {
		v := duration.Float64
		job.VideoDurationSeconds = &v
	}
	if fps.Valid {
		v := fps.Float64
		job.FPS = &v
	}
	if slideCount.Valid {
		v := int(slideCount.Int64)
		job.SlideCount = &v
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseNullableTime(startedRaw)
	job.CompletedAt = parseNullableTime(completedRaw)
	return &job, nil
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func encodeList(values []string) any {
	if len(values) == 0 {
		return nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return string(raw)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid {
		return nil
	}
	parsed, err := parseTimeString(raw.String)
	if err != nil {
		return nil
	}
	return &parsed
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
