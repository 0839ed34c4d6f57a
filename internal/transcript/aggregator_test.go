package transcript_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"minutes/internal/gemini"
	"minutes/internal/logging"
	"minutes/internal/transcript"
)

type stubEngine struct {
	uploadErrs   map[string]error
	generateErrs map[string]error
	deleteErr    error
	deleted      []string
	uploads      []string
}

func (s *stubEngine) UploadFile(_ context.Context, path, _ string) (gemini.File, error) {
	s.uploads = append(s.uploads, path)
	if err := s.uploadErrs[path]; err != nil {
		return gemini.File{}, err
	}
	return gemini.File{Name: "files/" + path, URI: "uri/" + path, MIMEType: "audio/mpeg"}, nil
}

func (s *stubEngine) GenerateFromFile(_ context.Context, _ string, file gemini.File, _ string) (string, error) {
	path := strings.TrimPrefix(file.Name, "files/")
	if err := s.generateErrs[path]; err != nil {
		return "", err
	}
	return "text of " + path, nil
}

func (s *stubEngine) DeleteFile(_ context.Context, name string) error {
	s.deleted = append(s.deleted, name)
	return s.deleteErr
}

func TestTranscribeAllPreservesSegmentOrder(t *testing.T) {
	engine := &stubEngine{}
	aggregator := transcript.NewAggregator(engine, "models/test", logging.NewNop())

	segments := []string{"seg_000.mp3", "seg_001.mp3", "seg_002.mp3"}
	result, err := aggregator.TranscribeAll(context.Background(), segments)
	if err != nil {
		t.Fatalf("TranscribeAll failed: %v", err)
	}
	if len(result.Document.Fragments) != 3 {
		t.Fatalf("expected 3 fragments, got %d", len(result.Document.Fragments))
	}
	for i, fragment := range result.Document.Fragments {
		if fragment.Ordinal != i+1 {
			t.Fatalf("fragment %d has ordinal %d", i, fragment.Ordinal)
		}
		want := fmt.Sprintf("text of seg_%03d.mp3", i)
		if fragment.Text != want {
			t.Fatalf("fragment %d: got %q, want %q", i, fragment.Text, want)
		}
	}
	if len(engine.deleted) != 3 {
		t.Fatalf("expected 3 remote deletes, got %d", len(engine.deleted))
	}
}

func TestTranscribeAllSkipsFailedSegment(t *testing.T) {
	engine := &stubEngine{
		generateErrs: map[string]error{"seg_001.mp3": errors.New("model overloaded")},
	}
	aggregator := transcript.NewAggregator(engine, "models/test", logging.NewNop())

	result, err := aggregator.TranscribeAll(context.Background(), []string{"seg_000.mp3", "seg_001.mp3", "seg_002.mp3"})
	if err != nil {
		t.Fatalf("TranscribeAll failed: %v", err)
	}
	if result.Skipped != 1 {
		t.Fatalf("expected 1 skipped segment, got %d", result.Skipped)
	}
	if len(result.Document.Fragments) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(result.Document.Fragments))
	}
	if result.Document.Fragments[0].Ordinal != 1 || result.Document.Fragments[1].Ordinal != 3 {
		t.Fatalf("unexpected ordinals: %#v", result.Document.Fragments)
	}
	// The failed segment's upload is still released.
	if len(engine.deleted) != 3 {
		t.Fatalf("expected 3 remote deletes, got %d", len(engine.deleted))
	}
}

func TestTranscribeAllSkipsFailedUploadWithoutDelete(t *testing.T) {
	engine := &stubEngine{
		uploadErrs: map[string]error{"seg_000.mp3": errors.New("upload rejected")},
	}
	aggregator := transcript.NewAggregator(engine, "models/test", logging.NewNop())

	result, err := aggregator.TranscribeAll(context.Background(), []string{"seg_000.mp3", "seg_001.mp3"})
	if err != nil {
		t.Fatalf("TranscribeAll failed: %v", err)
	}
	if result.Skipped != 1 || len(result.Document.Fragments) != 1 {
		t.Fatalf("unexpected result %#v", result)
	}
	if len(engine.deleted) != 1 {
		t.Fatalf("expected 1 remote delete, got %d", len(engine.deleted))
	}
}

func TestTranscribeAllFailsWhenEverySegmentLost(t *testing.T) {
	engine := &stubEngine{
		uploadErrs: map[string]error{
			"seg_000.mp3": errors.New("upload rejected"),
			"seg_001.mp3": errors.New("upload rejected"),
		},
	}
	aggregator := transcript.NewAggregator(engine, "models/test", logging.NewNop())

	_, err := aggregator.TranscribeAll(context.Background(), []string{"seg_000.mp3", "seg_001.mp3"})
	if !errors.Is(err, transcript.ErrNoTranscript) {
		t.Fatalf("expected ErrNoTranscript, got %v", err)
	}
}

func TestTranscribeAllCountsCleanupFailures(t *testing.T) {
	engine := &stubEngine{deleteErr: errors.New("permission denied")}
	aggregator := transcript.NewAggregator(engine, "models/test", logging.NewNop())

	result, err := aggregator.TranscribeAll(context.Background(), []string{"seg_000.mp3", "seg_001.mp3"})
	if err != nil {
		t.Fatalf("TranscribeAll failed: %v", err)
	}
	if result.CleanupFailures != 2 {
		t.Fatalf("expected 2 cleanup failures, got %d", result.CleanupFailures)
	}
	if len(result.Document.Fragments) != 2 {
		t.Fatalf("cleanup failures must not drop fragments: %#v", result)
	}
}

func TestRenderJoinsFragmentsWithDivider(t *testing.T) {
	doc := transcript.Document{Fragments: []transcript.Fragment{
		{Ordinal: 1, Text: "part one"},
		{Ordinal: 2, Text: "part two"},
	}}

	rendered := doc.Render()
	if !strings.HasPrefix(rendered, "part one") {
		t.Fatalf("no divider may precede the first fragment: %q", rendered)
	}
	if !strings.HasSuffix(rendered, "part two") {
		t.Fatalf("unexpected tail: %q", rendered)
	}
	if strings.Count(rendered, strings.Repeat("─", 70)) != 1 {
		t.Fatalf("expected exactly one divider, got %q", rendered)
	}
	if again := doc.Render(); again != rendered {
		t.Fatalf("rendering twice diverged: %q vs %q", rendered, again)
	}
}

func TestRenderSortsFragmentsByOrdinal(t *testing.T) {
	doc := transcript.Document{Fragments: []transcript.Fragment{
		{Ordinal: 3, Text: "third"},
		{Ordinal: 1, Text: "first"},
		{Ordinal: 2, Text: "second"},
	}}

	rendered := doc.Render()
	if !strings.HasPrefix(rendered, "first") || !strings.HasSuffix(rendered, "third") {
		t.Fatalf("fragments not in ordinal order: %q", rendered)
	}
	if doc.Fragments[0].Ordinal != 3 {
		t.Fatal("Render must not reorder the caller's slice")
	}
}

func TestRenderSingleFragmentHasNoDivider(t *testing.T) {
	doc := transcript.Document{Fragments: []transcript.Fragment{{Ordinal: 1, Text: "only part"}}}
	if got := doc.Render(); got != "only part" {
		t.Fatalf("got %q", got)
	}
}
