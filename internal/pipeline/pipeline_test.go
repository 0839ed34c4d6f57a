package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"minutes/internal/config"
	"minutes/internal/lark"
	"minutes/internal/logging"
	"minutes/internal/pipeline"
	"minutes/internal/runs"
	"minutes/internal/tagging"
	"minutes/internal/testsupport"
	"minutes/internal/transcript"
)

type stubSource struct {
	meeting     lark.Meeting
	infoErr     error
	downloadErr error
	downloads   int
}

func (s *stubSource) MeetingInfo(context.Context, string) (lark.Meeting, error) {
	if s.infoErr != nil {
		return lark.Meeting{}, s.infoErr
	}
	return s.meeting, nil
}

func (s *stubSource) DownloadRecording(_ context.Context, _, _ string) error {
	s.downloads++
	return s.downloadErr
}

type stubTranscoder struct {
	checkErr   error
	extractErr error
	splitErr   error
	segments   []string
}

func (s *stubTranscoder) CheckBinaries() error { return s.checkErr }

func (s *stubTranscoder) ExtractAudio(context.Context, string, string) error { return s.extractErr }

func (s *stubTranscoder) SplitAudio(context.Context, string, string, int) ([]string, error) {
	if s.splitErr != nil {
		return nil, s.splitErr
	}
	return s.segments, nil
}

type stubTranscriber struct {
	result transcript.Result
	err    error
	got    []string
}

func (s *stubTranscriber) TranscribeAll(_ context.Context, segments []string) (transcript.Result, error) {
	s.got = segments
	if s.err != nil {
		return transcript.Result{}, s.err
	}
	return s.result, nil
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(context.Context, string) (string, error) {
	return s.summary, s.err
}

type stubTagger struct {
	tags tagging.Tags
}

func (s *stubTagger) Classify(context.Context, string) tagging.Tags { return s.tags }

type fixture struct {
	cfg         *config.Config
	store       *runs.Store
	source      *stubSource
	transcoder  *stubTranscoder
	transcriber *stubTranscriber
	summarizer  *stubSummarizer
	tagger      *stubTagger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &fixture{
		cfg:   cfg,
		store: testsupport.MustOpenStore(t, cfg),
		source: &stubSource{meeting: lark.Meeting{
			Token:           "obcc1234abcd",
			Title:           "Weekly Sync",
			Owner:           "Pat",
			Participants:    []string{"Pat", "Sam"},
			DurationSeconds: 3600,
		}},
		transcoder: &stubTranscoder{segments: []string{"segment_000.mp3", "segment_001.mp3"}},
		transcriber: &stubTranscriber{result: transcript.Result{Document: transcript.Document{
			Fragments: []transcript.Fragment{
				{Ordinal: 1, Text: "part one"},
				{Ordinal: 2, Text: "part two"},
			},
		}}},
		summarizer: &stubSummarizer{summary: "meeting summary"},
		tagger:     &stubTagger{tags: tagging.Tags{MeetingType: tagging.TypeProject, MeetingTopic: tagging.TopicData}},
	}
}

func (f *fixture) pipeline() *pipeline.Pipeline {
	return pipeline.New(f.cfg, f.store, logging.NewNop(), nil, pipeline.Collaborators{
		Source:      f.source,
		Transcoder:  f.transcoder,
		Transcriber: f.transcriber,
		Summarizer:  f.summarizer,
		Tagger:      f.tagger,
	})
}

const meetingURL = "https://example.sg.larksuite.com/minutes/obcc1234abcd"

func TestProcessCompletesAllStagesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	run, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if run.Status != runs.StatusCompleted {
		t.Fatalf("expected completed run, got %s", run.Status)
	}
	if run.ProcessedAt == nil {
		t.Fatal("expected processed timestamp")
	}
	if run.MeetingType != tagging.TypeProject || run.MeetingTopic != tagging.TopicData {
		t.Fatalf("unexpected tags %q/%q", run.MeetingType, run.MeetingTopic)
	}

	events, err := f.store.EventsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("EventsForRun failed: %v", err)
	}
	expected := runs.Stages()
	if len(events) != len(expected)*2 {
		t.Fatalf("expected %d events, got %d", len(expected)*2, len(events))
	}
	for i, stage := range expected {
		started := events[i*2]
		completed := events[i*2+1]
		if started.Stage != stage || started.Status != runs.EventStarted {
			t.Fatalf("event %d: expected %s started, got %s %s", i*2, stage, started.Stage, started.Status)
		}
		if completed.Stage != stage || completed.Status != runs.EventCompleted {
			t.Fatalf("event %d: expected %s completed, got %s %s", i*2+1, stage, completed.Stage, completed.Status)
		}
	}

	artifacts, err := f.store.Artifacts(ctx, run.ID)
	if err != nil {
		t.Fatalf("Artifacts failed: %v", err)
	}
	if artifacts == nil || artifacts.SummaryContent != "meeting summary" {
		t.Fatalf("unexpected artifacts %#v", artifacts)
	}
	if artifacts.TranscriptWordCount == 0 {
		t.Fatal("expected transcript word count")
	}

	stored, err := f.store.GetByID(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Owner != "Pat" || stored.DurationSeconds != 3600 {
		t.Fatalf("meeting metadata not persisted: %#v", stored)
	}
}

func TestProcessAbortsOnConvertFailure(t *testing.T) {
	f := newFixture(t)
	f.transcoder.extractErr = errors.New("ffmpeg exited with status 1")
	ctx := context.Background()

	run, err := f.pipeline().Process(ctx, meetingURL)
	if err == nil {
		t.Fatal("expected convert failure to propagate")
	}
	if run == nil || run.Status != runs.StatusFailed {
		t.Fatalf("expected failed run, got %#v", run)
	}
	if run.ErrorMessage == "" {
		t.Fatal("expected failure message on run")
	}

	events, err := f.store.EventsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("EventsForRun failed: %v", err)
	}
	// download s/c, create_record s/c, convert s/f; nothing after.
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}
	last := events[len(events)-1]
	if last.Stage != runs.StageConvert || last.Status != runs.EventFailed {
		t.Fatalf("unexpected final event %s %s", last.Stage, last.Status)
	}
	if f.transcriber.got != nil {
		t.Fatal("transcription must not run after convert fails")
	}
}

func TestProcessFailsHardWhenNoTranscript(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = transcript.ErrNoTranscript
	ctx := context.Background()

	run, err := f.pipeline().Process(ctx, meetingURL)
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript cause, got %v", err)
	}
	if run.Status != runs.StatusFailed {
		t.Fatalf("expected failed run, got %s", run.Status)
	}
}

func TestProcessPreRunDownloadFailureLeavesNoRun(t *testing.T) {
	f := newFixture(t)
	f.source.downloadErr = errors.New("expired session")
	ctx := context.Background()

	run, err := f.pipeline().Process(ctx, meetingURL)
	if err == nil {
		t.Fatal("expected download failure to propagate")
	}
	if run != nil {
		t.Fatalf("expected no run record, got %#v", run)
	}

	all, err := f.store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty store, got %d runs", len(all))
	}
}

func TestProcessRejectsNonMinutesURL(t *testing.T) {
	f := newFixture(t)
	if _, err := f.pipeline().Process(context.Background(), "https://example.com/docs/abc"); err == nil {
		t.Fatal("expected error for non-minutes url")
	}
	if f.source.downloads != 0 {
		t.Fatal("download must not start for an invalid url")
	}
}

func TestProcessSkipPolicyShortCircuitsDuplicates(t *testing.T) {
	f := newFixture(t)
	f.cfg.Pipeline.ReprocessPolicy = config.ReprocessSkip
	ctx := context.Background()

	first, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}

	existing, err := f.pipeline().Process(ctx, meetingURL)
	if !errors.Is(err, pipeline.ErrDuplicateRun) {
		t.Fatalf("expected ErrDuplicateRun, got %v", err)
	}
	if existing == nil || existing.ID != first.ID {
		t.Fatalf("expected the existing run back, got %#v", existing)
	}
	if f.source.downloads != 1 {
		t.Fatalf("expected no second download, got %d", f.source.downloads)
	}
}

func TestProcessReplacePolicyCreatesNewRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	second, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("expected a fresh run under replace policy")
	}
}

func TestProcessSkipPolicyAllowsRetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	f.cfg.Pipeline.ReprocessPolicy = config.ReprocessSkip
	ctx := context.Background()

	f.summarizer.err = errors.New("model overloaded")
	failed, err := f.pipeline().Process(ctx, meetingURL)
	if err == nil {
		t.Fatal("expected summary failure")
	}
	if failed.Status != runs.StatusFailed {
		t.Fatalf("expected failed run, got %s", failed.Status)
	}

	f.summarizer.err = nil
	retried, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("retry Process failed: %v", err)
	}
	if retried.ID == failed.ID {
		t.Fatal("expected a new run for the retry")
	}
	if retried.Status != runs.StatusCompleted {
		t.Fatalf("expected completed retry, got %s", retried.Status)
	}
}

func TestProcessUsesDefaultTitleWhenMetadataMissing(t *testing.T) {
	f := newFixture(t)
	f.source.infoErr = errors.New("info endpoint unavailable")
	ctx := context.Background()

	run, err := f.pipeline().Process(ctx, meetingURL)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if run.Title != runs.DefaultTitle {
		t.Fatalf("expected default title, got %q", run.Title)
	}
}
