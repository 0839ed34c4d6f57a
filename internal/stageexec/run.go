// Package stageexec executes one pipeline stage and records its audit trail.
package stageexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"minutes/internal/logging"
	"minutes/internal/notifications"
	"minutes/internal/runs"
	"minutes/internal/services"
)

// Body performs the work of a single stage. Returned metadata is stored on
// the completed stage event.
type Body func(ctx context.Context) (map[string]any, error)

// Options controls stage execution and audit persistence behavior.
type Options struct {
	Logger   *slog.Logger
	Store    *runs.Store
	Notifier notifications.Service
	Run      *runs.Run
	Stage    runs.Stage
	Body     Body
}

// Run executes a stage body between a started and a completed/failed stage
// event. The run row itself is not touched; lifecycle transitions belong to
// the orchestrator.
func Run(ctx context.Context, opts Options) error {
	if opts.Body == nil {
		return fmt.Errorf("stage body unavailable: %s", opts.Stage)
	}
	if opts.Store == nil {
		return fmt.Errorf("runs store is required")
	}
	if opts.Run == nil {
		return fmt.Errorf("run is required")
	}

	stageCtx := services.WithStage(services.WithRunID(ctx, opts.Run.ID), string(opts.Stage))
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info(
		"stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("meeting_title", strings.TrimSpace(opts.Run.Title)),
	)
	if _, err := opts.Store.AppendStageEvent(stageCtx, runs.StageEvent{
		RunID:  opts.Run.ID,
		Stage:  opts.Stage,
		Status: runs.EventStarted,
	}); err != nil {
		return fmt.Errorf("persist stage start: %w", err)
	}

	metadata, stageErr := opts.Body(stageCtx)
	if stageErr != nil {
		return handleFailure(stageCtx, stageLogger, opts, stageErr)
	}

	var metadataJSON string
	if len(metadata) > 0 {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			stageLogger.Warn("stage metadata not serializable", logging.Error(err))
		} else {
			metadataJSON = string(encoded)
		}
	}
	if _, err := opts.Store.AppendStageEvent(stageCtx, runs.StageEvent{
		RunID:        opts.Run.ID,
		Stage:        opts.Stage,
		Status:       runs.EventCompleted,
		MetadataJSON: metadataJSON,
	}); err != nil {
		return fmt.Errorf("persist stage result: %w", err)
	}

	stageLogger.Info(
		"stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	return nil
}

func handleFailure(ctx context.Context, logger *slog.Logger, opts Options, stageErr error) error {
	message := strings.TrimSpace(services.Message(stageErr))
	if message == "" {
		message = "stage failed"
	}

	logger.Error(
		"stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)
	if _, err := opts.Store.AppendStageEvent(ctx, runs.StageEvent{
		RunID:   opts.Run.ID,
		Stage:   opts.Stage,
		Status:  runs.EventFailed,
		Message: message,
	}); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if opts.Notifier != nil {
		contextLabel := fmt.Sprintf("%s (run #%d)", opts.Stage, opts.Run.ID)
		if err := opts.Notifier.Publish(ctx, notifications.EventError, notifications.Payload{
			"error":   stageErr,
			"context": contextLabel,
		}); err != nil {
			logger.Debug("stage error notification failed", logging.Error(err))
		}
	}

	return stageErr
}
