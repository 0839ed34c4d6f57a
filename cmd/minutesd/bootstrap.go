package main

import (
	"log/slog"

	"minutes/internal/config"
	"minutes/internal/gemini"
	"minutes/internal/lark"
	"minutes/internal/media"
	"minutes/internal/notifications"
	"minutes/internal/pipeline"
	"minutes/internal/runs"
	"minutes/internal/tagging"
	"minutes/internal/transcript"
)

// buildPipeline wires all pipeline collaborators from configuration.
func buildPipeline(cfg *config.Config, store *runs.Store, logger *slog.Logger, notifier notifications.Service) *pipeline.Pipeline {
	tokens := lark.NewTokenCache(cfg.Lark.TokenPath, cfg.Lark.AppID, cfg.Lark.AppSecret)
	source := lark.NewClient(cfg, tokens)

	engine := gemini.NewClient(gemini.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.Model,
		TagModel:       cfg.Gemini.TagModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})

	transcoder := media.NewTranscoder(cfg)
	transcriber := transcript.NewAggregator(engine, engine.Model(), logger)
	tagger := tagging.NewClassifier(engine, engine.TagModel(), cfg, logger)

	return pipeline.New(cfg, store, logger, notifier, pipeline.Collaborators{
		Source:      source,
		Transcoder:  transcoder,
		Transcriber: transcriber,
		Summarizer:  engine,
		Tagger:      tagger,
	})
}
