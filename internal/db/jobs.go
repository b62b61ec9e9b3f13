package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rankforge/rankreel/internal/models"
)

func (db *DB) CreateJob(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (
			id, mode, title, ranks, source_keys, timestamp_marks, end_time,
			webhook_url, status, progress
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		job.ID, job.Mode, job.Title, job.Ranks, job.SourceKeys,
		job.TimestampMarks, job.EndTime, job.WebhookURL, job.Status, job.Progress,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `
		SELECT
			id, mode, title, ranks, source_keys, timestamp_marks, end_time,
			webhook_url, status, progress, output_key, thumbnail_key,
			error_message, created_at, updated_at
		FROM jobs
		WHERE id = $1
	`

	job := &models.Job{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.Mode, &job.Title, &job.Ranks, &job.SourceKeys,
		&job.TimestampMarks, &job.EndTime, &job.WebhookURL, &job.Status,
		&job.Progress, &job.OutputKey, &job.ThumbnailKey,
		&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("job not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

func (db *DB) ListJobs(ctx context.Context, statusFilter string, limit, offset int) ([]models.Job, error) {
	query := `
		SELECT
			id, mode, title, ranks, source_keys, timestamp_marks, end_time,
			webhook_url, status, progress, output_key, thumbnail_key,
			error_message, created_at, updated_at
		FROM jobs
	`
	args := []interface{}{}
	if statusFilter != "" {
		query += ` WHERE status = $1`
		args = append(args, statusFilter)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		err := rows.Scan(
			&job.ID, &job.Mode, &job.Title, &job.Ranks, &job.SourceKeys,
			&job.TimestampMarks, &job.EndTime, &job.WebhookURL, &job.Status,
			&job.Progress, &job.OutputKey, &job.ThumbnailKey,
			&job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

func (db *DB) CountJobs(ctx context.Context, statusFilter string) (int, error) {
	query := `SELECT COUNT(*) FROM jobs`
	args := []interface{}{}
	if statusFilter != "" {
		query += ` WHERE status = $1`
		args = append(args, statusFilter)
	}

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

// UpdateJobStatus sets the job's stage and progress percentage.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, status models.JobStatus, progress int) error {
	query := `UPDATE jobs SET status = $1, progress = $2, updated_at = $3 WHERE id = $4`
	_, err := db.ExecContext(ctx, query, status, progress, time.Now(), id)
	return err
}

// UpdateJobError marks the job failed with a human-readable reason.
func (db *DB) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusFailed, errorMessage, time.Now(), id)
	return err
}

// DeleteJob removes the job row.
func (db *DB) DeleteJob(ctx context.Context, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetJobOutput records the published artifact keys and marks the job ready.
func (db *DB) SetJobOutput(ctx context.Context, id uuid.UUID, outputKey, thumbnailKey string) error {
	query := `
		UPDATE jobs
		SET status = $1, progress = 100, output_key = $2, thumbnail_key = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := db.ExecContext(ctx, query, models.JobStatusReady, outputKey, thumbnailKey, time.Now(), id)
	return err
}
