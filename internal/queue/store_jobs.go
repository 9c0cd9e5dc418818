package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateSubmission inserts a fresh media item and its queued job in one
// transaction. Every submission produces a new pair; nothing is deduplicated.
func (s *Store) CreateSubmission(ctx context.Context, sub Submission) (*Job, error) {
	if _, ok := ParseSourceKind(string(sub.Kind)); !ok {
		return nil, fmt.Errorf("create submission: unknown source kind %q", sub.Kind)
	}
	var jobID int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO media_items (account_id, source_kind, source_url, storage_path, script_text, platform_label, title, acquired, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			sub.AccountID, string(sub.Kind), nullableString(sub.SourceURL), nullableString(sub.LocalPath),
			nullableString(sub.ScriptText), nullableString(sub.PlatformLabel), nullableString(sub.Title), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert media: %w", err)
		}
		mediaID, err := res.LastInsertId()
		if err != nil {
			return err
		}
		res, err = tx.ExecContext(ctx,
			`INSERT INTO analysis_jobs (account_id, media_id, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?)`,
			sub.AccountID, mediaID, string(StatusQueued), now, now,
		)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		jobID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return s.GetJob(ctx, jobID)
}

// GetJob fetches a job by id, returning ErrNotFound when absent.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+jobColumns+" FROM analysis_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// GetMedia fetches a media item by id, returning ErrNotFound when absent.
func (s *Store) GetMedia(ctx context.Context, id int64) (*Media, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+mediaColumns+" FROM media_items WHERE id = ?", id)
	media, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("media %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return media, nil
}

// ListJobs returns an account's jobs with their media, newest first. A
// non-positive limit returns every job.
func (s *Store) ListJobs(ctx context.Context, accountID int64, limit int) ([]JobRecord, error) {
	query := `SELECT j.` + strings.ReplaceAll(jobColumns, ", ", ", j.") + `, m.` + strings.ReplaceAll(mediaColumns, ", ", ", m.") + `
        FROM analysis_jobs j JOIN media_items m ON m.id = j.media_id
        WHERE j.account_id = ?
        ORDER BY j.created_at DESC, j.id DESC`
	args := []any{accountID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var (
			js jobScan
			ms mediaScan
		)
		if err := rows.Scan(append(js.dest(), ms.dest()...)...); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, JobRecord{Job: js.result(), Media: ms.result()})
	}
	return records, rows.Err()
}

// ListByStatus returns jobs in the given statuses, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Job, error) {
	if len(statuses) == 0 {
		statuses = allStatuses
	}
	placeholders, args := statusArgs(statuses)
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+jobColumns+" FROM analysis_jobs WHERE status IN ("+placeholders+") ORDER BY id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs by status: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// RecordAcquisition fills the acquisition fields of a media item. It succeeds
// once; later calls return ErrAlreadyAcquired.
func (s *Store) RecordAcquisition(ctx context.Context, mediaID int64, acq Acquisition) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE media_items SET
             storage_path = COALESCE(storage_path, ?),
             duration_seconds = COALESCE(duration_seconds, ?),
             platform_label = COALESCE(platform_label, ?),
             title = COALESCE(title, ?),
             acquired = 1,
             updated_at = ?
         WHERE id = ? AND acquired = 0`,
		nullableString(acq.StoragePath), nullableFloat(acq.DurationSeconds), nullableString(acq.PlatformLabel),
		nullableString(acq.Title), nowString(), mediaID,
	)
	if err != nil {
		return fmt.Errorf("record acquisition: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record acquisition: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetMedia(ctx, mediaID); getErr != nil {
			return fmt.Errorf("record acquisition: %w", getErr)
		}
		return fmt.Errorf("record acquisition for media %d: %w", mediaID, ErrAlreadyAcquired)
	}
	return nil
}

// Transition moves a job from one non-terminal state to the next. The update
// is guarded on the current state so a stale caller cannot regress a job.
func (s *Store) Transition(ctx context.Context, jobID int64, from, to Status) error {
	if err := validateTransition(from, to); err != nil {
		return err
	}
	if to == StatusCompleted || to == StatusFailed {
		return fmt.Errorf("%w: use CompleteJob or FailJob to reach %s", ErrInvalidTransition, to)
	}
	res, err := s.execWithRetry(ctx,
		"UPDATE analysis_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(to), nowString(), jobID, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition job %d: %w", jobID, err)
	}
	return s.checkGuarded(ctx, res, jobID, from, to)
}

// CompleteJob writes the report and marks the job completed. It only applies
// to a job that is analyzing, so terminal payloads are written at most once.
func (s *Store) CompleteJob(ctx context.Context, jobID int64, report Report) error {
	now := nowString()
	res, err := s.execWithRetry(ctx,
		`UPDATE analysis_jobs SET
             status = ?, overall_score = ?, subscores_json = ?, insights_json = ?,
             optimized_assets_json = ?, checklist_json = ?, updated_at = ?, completed_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusCompleted), report.OverallScore, nullableJSON(report.Subscores), nullableJSON(report.Insights),
		nullableJSON(report.OptimizedAssets), nullableJSON(report.Checklist), now, now,
		jobID, string(StatusAnalyzing),
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return s.checkGuarded(ctx, res, jobID, StatusAnalyzing, StatusCompleted)
}

// FailJob marks a non-terminal job failed with an operator-facing kind and
// message. No score payload is written.
func (s *Store) FailJob(ctx context.Context, jobID int64, kind, message string) error {
	sources := sourcesOf(StatusFailed)
	placeholders, statusValues := statusArgs(sources)
	now := nowString()
	args := []any{string(StatusFailed), nullableString(kind), nullableString(message), now, now, jobID}
	args = append(args, statusValues...)
	res, err := s.execWithRetry(ctx,
		`UPDATE analysis_jobs SET status = ?, error_kind = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", jobID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail job %d: %w", jobID, err)
	}
	if affected == 0 {
		job, getErr := s.GetJob(ctx, jobID)
		if getErr != nil {
			return fmt.Errorf("fail job: %w", getErr)
		}
		return fmt.Errorf("%w: job %d is already %s", ErrInvalidTransition, jobID, job.Status)
	}
	return nil
}

// FailInterrupted marks every job left in flight by a previous process as
// failed. It returns the number of jobs affected.
func (s *Store) FailInterrupted(ctx context.Context, kind, message string) (int64, error) {
	now := nowString()
	res, err := s.execWithRetry(ctx,
		`UPDATE analysis_jobs SET status = ?, error_kind = ?, error_message = ?, updated_at = ?, completed_at = ?
         WHERE status IN (?, ?)`,
		string(StatusFailed), kind, message, now, now,
		string(StatusProcessing), string(StatusAnalyzing),
	)
	if err != nil {
		return 0, fmt.Errorf("fail interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

// StatusCounts returns the number of jobs per status.
func (s *Store) StatusCounts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT status, COUNT(1) FROM analysis_jobs GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
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
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}

// ScoreStats aggregates an account's completed jobs.
func (s *Store) ScoreStats(ctx context.Context, accountID int64) (ScoreStats, error) {
	var (
		stats ScoreStats
		avg   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1), AVG(overall_score) FROM analysis_jobs
         WHERE account_id = ? AND status = ? AND overall_score IS NOT NULL`,
		accountID, string(StatusCompleted),
	).Scan(&stats.Completed, &avg)
	if err != nil {
		return ScoreStats{}, fmt.Errorf("score stats: %w", err)
	}
	if avg.Valid {
		stats.AverageScore = avg.Float64
	}
	return stats, nil
}

func (s *Store) checkGuarded(ctx context.Context, res sql.Result, jobID int64, from, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition job %d: %w", jobID, err)
	}
	if affected > 0 {
		return nil
	}
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	return fmt.Errorf("%w: job %d is %s, not %s (wanted %s)", ErrInvalidTransition, jobID, job.Status, from, to)
}
