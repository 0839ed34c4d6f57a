package api

import (
	"time"

	"minutes/internal/runs"
)

// Run is the wire representation of a pipeline run.
type Run struct {
	ID              int64   `json:"id"`
	SourceToken     string  `json:"source_token"`
	SourceURL       string  `json:"source_url,omitempty"`
	Title           string  `json:"title"`
	Owner           string  `json:"owner,omitempty"`
	DurationSeconds int64   `json:"duration_seconds,omitempty"`
	Status          string  `json:"status"`
	ErrorMessage    string  `json:"error_message,omitempty"`
	MeetingType     string  `json:"meeting_type,omitempty"`
	MeetingTopic    string  `json:"meeting_topic,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
	ProcessedAt     *string `json:"processed_at,omitempty"`
}

// StageEvent is the wire representation of one audit record.
type StageEvent struct {
	ID        int64  `json:"id"`
	Stage     string `json:"stage"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt string `json:"created_at"`
}

// RunListResponse wraps the run collection endpoint payload.
type RunListResponse struct {
	Runs []Run `json:"runs"`
}

// RunResponse wraps the single-run endpoint payload.
type RunResponse struct {
	Run Run `json:"run"`
}

// EventListResponse wraps the stage event endpoint payload.
type EventListResponse struct {
	Events []StageEvent `json:"events"`
}

// Health is the liveness payload.
type Health struct {
	Status     string `json:"status"`
	Total      int    `json:"total_runs"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
}

// WebhookAck is returned immediately after a webhook trigger is accepted.
type WebhookAck struct {
	Accepted    bool   `json:"accepted"`
	SourceToken string `json:"source_token,omitempty"`
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

// FromRun converts a stored run into its wire view.
func FromRun(run *runs.Run) Run {
	view := Run{
		ID:              run.ID,
		SourceToken:     run.SourceToken,
		SourceURL:       run.SourceURL,
		Title:           run.Title,
		Owner:           run.Owner,
		DurationSeconds: run.DurationSeconds,
		Status:          string(run.Status),
		ErrorMessage:    run.ErrorMessage,
		MeetingType:     run.MeetingType,
		MeetingTopic:    run.MeetingTopic,
		CreatedAt:       formatTime(run.CreatedAt),
		UpdatedAt:       formatTime(run.UpdatedAt),
	}
	if run.ProcessedAt != nil {
		processed := formatTime(*run.ProcessedAt)
		view.ProcessedAt = &processed
	}
	return view
}

// FromRuns converts a run slice into wire views.
func FromRuns(items []*runs.Run) []Run {
	views := make([]Run, 0, len(items))
	for _, item := range items {
		views = append(views, FromRun(item))
	}
	return views
}

// FromStageEvent converts a stored event into its wire view.
func FromStageEvent(event *runs.StageEvent) StageEvent {
	return StageEvent{
		ID:        event.ID,
		Stage:     string(event.Stage),
		Status:    string(event.Status),
		Message:   event.Message,
		Metadata:  event.MetadataJSON,
		CreatedAt: formatTime(event.CreatedAt),
	}
}

// FromStageEvents converts an event slice into wire views.
func FromStageEvents(events []*runs.StageEvent) []StageEvent {
	views := make([]StageEvent, 0, len(events))
	for _, event := range events {
		views = append(views, FromStageEvent(event))
	}
	return views
}
