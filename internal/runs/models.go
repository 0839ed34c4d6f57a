package runs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a pipeline run.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Stage identifies one ordered unit of work within a run.
type Stage string

const (
	StageDownload     Stage = "download"
	StageCreateRecord Stage = "create_record"
	StageConvert      Stage = "convert"
	StageSegment      Stage = "segment"
	StageTranscript   Stage = "transcript"
	StageSummary      Stage = "summary"
	StageTag          Stage = "tag"
	StageUpload       Stage = "upload"
)

var stageOrder = []Stage{
	StageDownload,
	StageCreateRecord,
	StageConvert,
	StageSegment,
	StageTranscript,
	StageSummary,
	StageTag,
	StageUpload,
}

// Stages returns the fixed stage sequence in execution order.
func Stages() []Stage {
	cp := make([]Stage, len(stageOrder))
	copy(cp, stageOrder)
	return cp
}

// EventStatus marks the outcome recorded by a stage event.
type EventStatus string

const (
	EventStarted   EventStatus = "started"
	EventCompleted EventStatus = "completed"
	EventFailed    EventStatus = "failed"
)

// DefaultTitle is used when the source provides no display name for a meeting.
const DefaultTitle = "Untitled Meeting"

// Run represents one pipeline execution persisted in SQLite.
type Run struct {
	ID               int64
	SourceToken      string
	SourceURL        string
	Title            string
	Owner            string
	ParticipantsJSON string
	DurationSeconds  int64
	Status           Status
	ErrorMessage     string
	MeetingType      string
	MeetingTopic     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProcessedAt      *time.Time
}

// SetFailed marks the run as failed with the given error message.
func (r *Run) SetFailed(message string) {
	r.Status = StatusFailed
	r.ErrorMessage = message
}

// SetCompleted marks the run as completed and stamps the processed time.
func (r *Run) SetCompleted(now time.Time) {
	now = now.UTC()
	r.Status = StatusCompleted
	r.ErrorMessage = ""
	r.ProcessedAt = &now
}

// StageEvent is an append-only audit record for one stage transition.
type StageEvent struct {
	ID           int64
	RunID        int64
	Stage        Stage
	Status       EventStatus
	Message      string
	MetadataJSON string
	CreatedAt    time.Time
}

// Artifacts holds the transcript and summary text produced by a run.
type Artifacts struct {
	RunID               int64
	TranscriptContent   string
	TranscriptWordCount int
	SummaryContent      string
	CreatedAt           time.Time
}

// HealthSummary describes aggregated run counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Processing int
	Completed  int
	Failed     int
}
