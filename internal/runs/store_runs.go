package runs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewRun carries the fields required to create a run record.
type NewRun struct {
	SourceToken      string
	SourceURL        string
	Title            string
	Owner            string
	ParticipantsJSON string
	DurationSeconds  int64
}

// CreateRun inserts a new run in the processing state and returns the stored row.
func (s *Store) CreateRun(ctx context.Context, spec NewRun) (*Run, error) {
	token := strings.TrimSpace(spec.SourceToken)
	if token == "" {
		return nil, errors.New("source token is required")
	}
	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = DefaultTitle
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (
            source_token, source_url, title, owner, participants_json,
            duration_seconds, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		token,
		strings.TrimSpace(spec.SourceURL),
		title,
		nullableString(spec.Owner),
		nullableString(spec.ParticipantsJSON),
		spec.DurationSeconds,
		StatusProcessing,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a run by identifier. A missing row returns (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindBySourceToken returns the most recent run for a source recording.
func (s *Store) FindBySourceToken(ctx context.Context, token string) (*Run, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+runColumns+` FROM runs WHERE source_token = ? ORDER BY id DESC LIMIT 1`,
		strings.TrimSpace(token),
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by source token: %w", err)
	}
	return run, nil
}

// Update persists changes to an existing run. A run that already reached
// completed or failed is immutable; an update against a terminal row is
// refused.
func (s *Store) Update(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET source_token = ?, source_url = ?, title = ?, owner = ?,
             participants_json = ?, duration_seconds = ?, status = ?,
             error_message = ?, meeting_type = ?, meeting_topic = ?,
             updated_at = ?, processed_at = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		run.SourceToken,
		run.SourceURL,
		nullableString(run.Title),
		nullableString(run.Owner),
		nullableString(run.ParticipantsJSON),
		run.DurationSeconds,
		run.Status,
		nullableString(run.ErrorMessage),
		nullableString(run.MeetingType),
		nullableString(run.MeetingTopic),
		run.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(run.ProcessedAt),
		run.ID,
		StatusCompleted,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetByID(ctx, run.ID)
		if getErr != nil {
			return getErr
		}
		if current == nil {
			return fmt.Errorf("update run: run #%d not found", run.ID)
		}
		return fmt.Errorf("update run: run #%d is %s and can no longer change", run.ID, current.Status)
	}
	return nil
}

// List returns runs filtered by status set (or all runs when no status is provided),
// newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Run, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + runColumns + ` FROM runs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Health returns aggregated run counts for observability surfaces.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM runs GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("health query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

// SaveArtifacts stores the transcript and summary text for a run. The word
// count is derived from the transcript content.
func (s *Store) SaveArtifacts(ctx context.Context, runID int64, transcript, summary string) error {
	if runID <= 0 {
		return errors.New("run id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO run_artifacts (run_id, transcript_content, transcript_word_count, summary_content, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (run_id) DO UPDATE SET
             transcript_content = excluded.transcript_content,
             transcript_word_count = excluded.transcript_word_count,
             summary_content = excluded.summary_content,
             created_at = excluded.created_at`,
		runID,
		transcript,
		len(strings.Fields(transcript)),
		summary,
		now,
	); err != nil {
		return fmt.Errorf("save artifacts: %w", err)
	}
	return nil
}

// Artifacts fetches the stored transcript and summary for a run, or (nil, nil)
// when none exist.
func (s *Store) Artifacts(ctx context.Context, runID int64) (*Artifacts, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT run_id, transcript_content, transcript_word_count, summary_content, created_at
         FROM run_artifacts WHERE run_id = ?`,
		runID,
	)
	var (
		artifacts  Artifacts
		createdRaw string
	)
	err := row.Scan(
		&artifacts.RunID,
		&artifacts.TranscriptContent,
		&artifacts.TranscriptWordCount,
		&artifacts.SummaryContent,
		&createdRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get artifacts: %w", err)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		artifacts.CreatedAt = created
	}
	return &artifacts, nil
}
