package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"minutes/internal/config"
	"minutes/internal/lark"
	"minutes/internal/logging"
	"minutes/internal/notifications"
	"minutes/internal/runs"
	"minutes/internal/services"
	"minutes/internal/stageexec"
	"minutes/internal/tagging"
	"minutes/internal/transcript"
)

// ErrDuplicateRun is returned when the reprocess policy is "skip" and a
// non-failed run already exists for the recording.
var ErrDuplicateRun = errors.New("pipeline: recording already processed")

// Source fetches meeting metadata and streams the recording media.
// *lark.Client satisfies it.
type Source interface {
	MeetingInfo(ctx context.Context, minuteToken string) (lark.Meeting, error)
	DownloadRecording(ctx context.Context, minuteToken, dest string) error
}

// Transcoder prepares the downloaded recording for transcription.
// *media.Transcoder satisfies it.
type Transcoder interface {
	CheckBinaries() error
	ExtractAudio(ctx context.Context, source, dest string) error
	SplitAudio(ctx context.Context, source, destDir string, segmentSeconds int) ([]string, error)
}

// Transcriber aggregates per-segment transcriptions.
// *transcript.Aggregator satisfies it.
type Transcriber interface {
	TranscribeAll(ctx context.Context, segments []string) (transcript.Result, error)
}

// Summarizer condenses a transcript. *gemini.Client satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, transcriptText string) (string, error)
}

// Tagger classifies a summary. *tagging.Classifier satisfies it.
type Tagger interface {
	Classify(ctx context.Context, summary string) tagging.Tags
}

// Pipeline runs the fixed stage sequence for one meeting at a time.
type Pipeline struct {
	cfg         *config.Config
	store       *runs.Store
	logger      *slog.Logger
	notifier    notifications.Service
	source      Source
	transcoder  Transcoder
	transcriber Transcriber
	summarizer  Summarizer
	tagger      Tagger
}

// Collaborators bundles the stage implementations wired into a pipeline.
type Collaborators struct {
	Source      Source
	Transcoder  Transcoder
	Transcriber Transcriber
	Summarizer  Summarizer
	Tagger      Tagger
}

// New builds a pipeline. The notifier may be nil.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger, notifier notifications.Service, deps Collaborators) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
		notifier:    notifier,
		source:      deps.Source,
		transcoder:  deps.Transcoder,
		transcriber: deps.Transcriber,
		summarizer:  deps.Summarizer,
		tagger:      deps.Tagger,
	}
}

// Process executes the full pipeline for a meeting URL. Failures before the
// run record exists are returned to the caller only; once the run exists its
// final state is persisted and every stage outcome is recorded as a stage
// event.
func (p *Pipeline) Process(ctx context.Context, meetingURL string) (*runs.Run, error) {
	token, err := lark.ExtractMinuteToken(meetingURL)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "download", "extract_token", "not a minutes recording url", err)
	}

	if err := p.transcoder.CheckBinaries(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "download", "preflight", "media tools unavailable", err)
	}

	if strings.EqualFold(p.cfg.Pipeline.ReprocessPolicy, config.ReprocessSkip) {
		existing, err := p.store.FindBySourceToken(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("check existing runs: %w", err)
		}
		if existing != nil && existing.Status != runs.StatusFailed {
			return existing, fmt.Errorf("%w: run #%d is %s", ErrDuplicateRun, existing.ID, existing.Status)
		}
	}

	workDir := filepath.Join(p.cfg.Paths.WorkDir, token)
	recordingPath := filepath.Join(workDir, token+".mp4")

	downloadStart := time.Now()
	if err := p.source.DownloadRecording(ctx, token, recordingPath); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "download", "fetch_media", "recording download failed", err)
	}
	downloadSeconds := time.Since(downloadStart).Round(time.Millisecond).Seconds()

	meeting, err := p.source.MeetingInfo(ctx, token)
	if err != nil {
		// Metadata is decoration; the recording is already on disk.
		p.logger.Warn("meeting metadata unavailable", logging.String("source_token", token), logging.Error(err))
		meeting = lark.Meeting{Token: token}
	}

	run, err := p.store.CreateRun(ctx, runs.NewRun{
		SourceToken:      token,
		SourceURL:        meetingURL,
		Title:            meeting.Title,
		Owner:            meeting.Owner,
		ParticipantsJSON: meeting.ParticipantsJSON(),
		DurationSeconds:  meeting.DurationSeconds,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "create_record", "create_run", "run record creation failed", err)
	}

	runCtx := services.WithRunID(ctx, run.ID)
	runLogger := logging.WithContext(runCtx, p.logger)
	runLogger.Info("run started", logging.String("source_token", token), logging.String("title", run.Title))
	p.publish(runCtx, notifications.EventRunStarted, notifications.Payload{"title": run.Title})

	err = p.executeStages(runCtx, run, recordingPath, workDir, downloadSeconds)
	if err != nil {
		run.SetFailed(services.Message(err))
		if updateErr := p.store.Update(runCtx, run); updateErr != nil {
			runLogger.Error("failed to persist run failure", logging.Error(updateErr))
		}
		p.publish(runCtx, notifications.EventRunFailed, notifications.Payload{
			"title": run.Title,
			"error": services.Message(err),
		})
		return run, err
	}

	run.SetCompleted(time.Now())
	if err := p.store.Update(runCtx, run); err != nil {
		return run, fmt.Errorf("persist run completion: %w", err)
	}
	runLogger.Info("run completed",
		logging.String("meeting_type", run.MeetingType),
		logging.String("meeting_topic", run.MeetingTopic),
	)
	p.publish(runCtx, notifications.EventRunCompleted, notifications.Payload{
		"title":        run.Title,
		"meeting_tags": fmt.Sprintf("%s | %s", run.MeetingType, run.MeetingTopic),
	})

	if err := os.RemoveAll(workDir); err != nil {
		runLogger.Warn("working directory cleanup failed", logging.Error(err))
	}
	return run, nil
}

// executeStages runs every stage through the executor. The first error
// aborts the sequence.
func (p *Pipeline) executeStages(ctx context.Context, run *runs.Run, recordingPath, workDir string, downloadSeconds float64) error {
	exec := func(stage runs.Stage, body stageexec.Body) error {
		return stageexec.Run(ctx, stageexec.Options{
			Logger:   p.logger,
			Store:    p.store,
			Notifier: p.notifier,
			Run:      run,
			Stage:    stage,
			Body:     body,
		})
	}

	// The recording and the run record predate the run's audit trail, so
	// their stages complete immediately with the captured details.
	if err := exec(runs.StageDownload, func(context.Context) (map[string]any, error) {
		return map[string]any{
			"recording_file":   filepath.Base(recordingPath),
			"download_seconds": downloadSeconds,
		}, nil
	}); err != nil {
		return err
	}
	if err := exec(runs.StageCreateRecord, func(context.Context) (map[string]any, error) {
		return map[string]any{"title": run.Title}, nil
	}); err != nil {
		return err
	}

	audioPath := filepath.Join(workDir, "audio.mp3")
	if err := exec(runs.StageConvert, func(ctx context.Context) (map[string]any, error) {
		if err := p.transcoder.ExtractAudio(ctx, recordingPath, audioPath); err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "convert", "extract_audio", "audio extraction failed", err)
		}
		return map[string]any{"audio_file": filepath.Base(audioPath)}, nil
	}); err != nil {
		return err
	}

	var segments []string
	if err := exec(runs.StageSegment, func(ctx context.Context) (map[string]any, error) {
		var err error
		segments, err = p.transcoder.SplitAudio(ctx, audioPath, filepath.Join(workDir, "segments"), p.cfg.Pipeline.SegmentSeconds)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "segment", "split_audio", "audio segmentation failed", err)
		}
		return map[string]any{"segment_count": len(segments)}, nil
	}); err != nil {
		return err
	}

	var transcriptText string
	if err := exec(runs.StageTranscript, func(ctx context.Context) (map[string]any, error) {
		result, err := p.transcriber.TranscribeAll(ctx, segments)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "transcript", "transcribe_segments", "transcription produced no text", err)
		}
		transcriptText = result.Document.Render()
		return map[string]any{
			"fragment_count":   len(result.Document.Fragments),
			"skipped_segments": result.Skipped,
			"cleanup_failures": result.CleanupFailures,
		}, nil
	}); err != nil {
		return err
	}

	var summaryText string
	if err := exec(runs.StageSummary, func(ctx context.Context) (map[string]any, error) {
		var err error
		summaryText, err = p.summarizer.Summarize(ctx, transcriptText)
		if err != nil {
			return nil, services.Wrap(services.ErrExternalTool, "summary", "generate_summary", "summary generation failed", err)
		}
		return nil, nil
	}); err != nil {
		return err
	}

	if err := exec(runs.StageTag, func(ctx context.Context) (map[string]any, error) {
		tags := p.tagger.Classify(ctx, summaryText)
		run.MeetingType = tags.MeetingType
		run.MeetingTopic = tags.MeetingTopic
		return map[string]any{
			"meeting_type":  tags.MeetingType,
			"meeting_topic": tags.MeetingTopic,
		}, nil
	}); err != nil {
		return err
	}

	return exec(runs.StageUpload, func(ctx context.Context) (map[string]any, error) {
		if err := p.store.SaveArtifacts(ctx, run.ID, transcriptText, summaryText); err != nil {
			return nil, services.Wrap(services.ErrTransient, "upload", "save_artifacts", "artifact persistence failed", err)
		}
		if err := p.store.Update(ctx, run); err != nil {
			return nil, services.Wrap(services.ErrTransient, "upload", "update_run", "run update failed", err)
		}
		return map[string]any{"word_count": len(strings.Fields(transcriptText))}, nil
	})
}

func (p *Pipeline) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		p.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
