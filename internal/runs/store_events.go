package runs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// AppendStageEvent writes one audit record for a stage transition. Events are
// append-only; nothing in the pipeline updates or deletes them.
func (s *Store) AppendStageEvent(ctx context.Context, event StageEvent) (*StageEvent, error) {
	if event.RunID <= 0 {
		return nil, errors.New("stage event requires a run id")
	}
	if event.Stage == "" {
		return nil, errors.New("stage event requires a stage")
	}
	switch event.Status {
	case EventStarted, EventCompleted, EventFailed:
	default:
		return nil, fmt.Errorf("unknown stage event status %q", event.Status)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO stage_events (run_id, stage, status, message, metadata_json, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.RunID,
		event.Stage,
		event.Status,
		nullableString(strings.TrimSpace(event.Message)),
		nullableString(event.MetadataJSON),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert stage event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	event.ID = id
	event.CreatedAt = now
	return &event, nil
}

// EventsForRun returns all stage events for a run in insertion order.
func (s *Store) EventsForRun(ctx context.Context, runID int64) ([]*StageEvent, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, stage, status, message, metadata_json, created_at
         FROM stage_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage events: %w", err)
	}
	defer rows.Close()

	var events []*StageEvent
	for rows.Next() {
		event, err := scanStageEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
