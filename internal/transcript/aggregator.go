package transcript

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"minutes/internal/gemini"
	"minutes/internal/logging"
)

// ErrNoTranscript is returned when every segment failed to transcribe.
var ErrNoTranscript = errors.New("transcript: no usable text produced from any segment")

// Engine is the generation surface the aggregator drives per segment.
// *gemini.Client satisfies it.
type Engine interface {
	UploadFile(ctx context.Context, path, mimeType string) (gemini.File, error)
	GenerateFromFile(ctx context.Context, model string, file gemini.File, prompt string) (string, error)
	DeleteFile(ctx context.Context, name string) error
}

// Result carries the aggregated document plus per-run anomaly counts.
type Result struct {
	Document        Document
	Skipped         int
	CleanupFailures int
}

// Aggregator transcribes audio segments one at a time, in order.
type Aggregator struct {
	engine Engine
	model  string
	prompt string
	logger *slog.Logger
}

// NewAggregator builds an aggregator that transcribes with the given model
// and the standard transcription prompt.
func NewAggregator(engine Engine, model string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{
		engine: engine,
		model:  model,
		prompt: gemini.TranscriptPrompt,
		logger: logger,
	}
}

// TranscribeAll processes segments in the given order. A segment whose
// upload or transcription fails is skipped; its loss does not abort the
// run. The remote file handle is released after each segment on a best
// effort basis. When no segment yields text the whole operation fails with
// ErrNoTranscript.
func (a *Aggregator) TranscribeAll(ctx context.Context, segments []string) (Result, error) {
	var result Result

	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ordinal := i + 1
		segmentLogger := a.logger.With(
			logging.Int("segment", ordinal),
			logging.String("segment_file", filepath.Base(segment)),
		)

		file, err := a.engine.UploadFile(ctx, segment, "audio/mpeg")
		if err != nil {
			segmentLogger.Warn("segment upload failed, skipping", logging.Error(err))
			result.Skipped++
			continue
		}

		text, err := a.engine.GenerateFromFile(ctx, a.model, file, a.prompt)
		a.release(ctx, segmentLogger, file, &result)
		if err != nil {
			segmentLogger.Warn("segment transcription failed, skipping", logging.Error(err))
			result.Skipped++
			continue
		}

		result.Document.Fragments = append(result.Document.Fragments, Fragment{
			Ordinal: ordinal,
			Text:    text,
		})
	}

	if len(result.Document.Fragments) == 0 {
		return result, ErrNoTranscript
	}
	return result, nil
}

// release deletes the remote file. Failures are logged and counted, never
// propagated.
func (a *Aggregator) release(ctx context.Context, logger *slog.Logger, file gemini.File, result *Result) {
	if file.Name == "" {
		return
	}
	if err := a.engine.DeleteFile(ctx, file.Name); err != nil {
		logger.Warn("remote segment cleanup failed", logging.Error(err))
		result.CleanupFailures++
	}
}
