package runs

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = "id, source_token, source_url, title, owner, participants_json, duration_seconds, status, error_message, meeting_type, meeting_topic, created_at, updated_at, processed_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           int64
		sourceToken  string
		sourceURL    string
		title        sql.NullString
		owner        sql.NullString
		participants sql.NullString
		duration     sql.NullInt64
		statusStr    string
		errorMessage sql.NullString
		meetingType  sql.NullString
		meetingTopic sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		processedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sourceToken,
		&sourceURL,
		&title,
		&owner,
		&participants,
		&duration,
		&statusStr,
		&errorMessage,
		&meetingType,
		&meetingTopic,
		&createdRaw,
		&updatedRaw,
		&processedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:               id,
		SourceToken:      sourceToken,
		SourceURL:        sourceURL,
		Title:            title.String,
		Owner:            owner.String,
		ParticipantsJSON: participants.String,
		DurationSeconds:  duration.Int64,
		Status:           Status(statusStr),
		ErrorMessage:     errorMessage.String,
		MeetingType:      meetingType.String,
		MeetingTopic:     meetingTopic.String,
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	if processedRaw.Valid {
		if processed, err := parseTimeString(processedRaw.String); err == nil {
			run.ProcessedAt = &processed
		}
	}
	return run, nil
}

func scanStageEvent(scanner interface{ Scan(dest ...any) error }) (*StageEvent, error) {
	var (
		id         int64
		runID      int64
		stage      string
		status     string
		message    sql.NullString
		metadata   sql.NullString
		createdRaw sql.NullString
	)

	if err := scanner.Scan(&id, &runID, &stage, &status, &message, &metadata, &createdRaw); err != nil {
		return nil, err
	}

	event := &StageEvent{
		ID:           id,
		RunID:        runID,
		Stage:        Stage(stage),
		Status:       EventStatus(status),
		Message:      message.String,
		MetadataJSON: metadata.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		event.CreatedAt = created
	}
	return event, nil
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
	return value.UTC().Format(time.RFC3339Nano)
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
