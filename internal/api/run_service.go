package api

import (
	"context"

	"minutes/internal/runs"
)

// RunReader abstracts run persistence interactions needed for API queries.
type RunReader interface {
	List(ctx context.Context, statuses ...runs.Status) ([]*runs.Run, error)
	GetByID(ctx context.Context, id int64) (*runs.Run, error)
	EventsForRun(ctx context.Context, runID int64) ([]*runs.StageEvent, error)
	Health(ctx context.Context) (runs.HealthSummary, error)
}

// RunService exposes read-only run operations returning API DTOs.
type RunService struct {
	store RunReader
}

// NewRunService constructs a RunService around the provided reader.
func NewRunService(store RunReader) *RunService {
	if store == nil {
		return nil
	}
	return &RunService{store: store}
}

// List returns runs filtered by status.
func (s *RunService) List(ctx context.Context, statuses ...runs.Status) ([]Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromRuns(items), nil
}

// Describe fetches a single run.
func (s *RunService) Describe(ctx context.Context, id int64) (*Run, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	run, err := s.store.GetByID(ctx, id)
	if err != nil || run == nil {
		return nil, err
	}
	view := FromRun(run)
	return &view, nil
}

// Events fetches the audit trail for a run.
func (s *RunService) Events(ctx context.Context, id int64) ([]StageEvent, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	events, err := s.store.EventsForRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromStageEvents(events), nil
}

// Health summarizes run counts for the liveness endpoint.
func (s *RunService) Health(ctx context.Context) (Health, error) {
	if s == nil || s.store == nil {
		return Health{Status: "ok"}, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{
		Status:     "ok",
		Total:      summary.Total,
		Processing: summary.Processing,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
	}, nil
}
