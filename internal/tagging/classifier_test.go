package tagging_test

import (
	"context"
	"errors"
	"testing"

	"minutes/internal/logging"
	"minutes/internal/tagging"
	"minutes/internal/testsupport"
)

type stubGenerator struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubGenerator) GenerateText(_ context.Context, _, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return "", errors.New("no scripted response")
}

func newClassifier(t *testing.T, generator *stubGenerator) *tagging.Classifier {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.TagRetryDelaySeconds = 0
	return tagging.NewClassifier(generator, "models/test", cfg, logging.NewNop())
}

func TestClassifyReturnsValidTags(t *testing.T) {
	generator := &stubGenerator{responses: []string{
		`{"meeting_type": "project_meeting", "meeting_topic": "data"}`,
	}}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags.MeetingType != tagging.TypeProject || tags.MeetingTopic != tagging.TopicData {
		t.Fatalf("unexpected tags %#v", tags)
	}
	if generator.calls != 1 {
		t.Fatalf("expected 1 call, got %d", generator.calls)
	}
}

func TestClassifyHandlesFencedResponse(t *testing.T) {
	generator := &stubGenerator{responses: []string{
		"```json\n{\"meeting_type\": \"recurring_meeting\", \"meeting_topic\": \"operation\"}\n```",
	}}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags.MeetingType != tagging.TypeRecurring || tags.MeetingTopic != tagging.TopicOperation {
		t.Fatalf("unexpected tags %#v", tags)
	}
}

func TestClassifyDefaultsOutOfEnumValues(t *testing.T) {
	generator := &stubGenerator{responses: []string{
		`{"meeting_type": "standup", "meeting_topic": "Misc"}`,
	}}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags != tagging.DefaultTags {
		t.Fatalf("expected defaults, got %#v", tags)
	}
	// A syntactically valid response with bad values is not retried.
	if generator.calls != 1 {
		t.Fatalf("expected 1 call, got %d", generator.calls)
	}
}

func TestClassifyRetriesThenSucceeds(t *testing.T) {
	generator := &stubGenerator{
		errs: []error{errors.New("overloaded"), nil},
		responses: []string{
			"",
			`{"meeting_type": "project_meeting", "meeting_topic": "loyalty"}`,
		},
	}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags.MeetingType != tagging.TypeProject || tags.MeetingTopic != tagging.TopicLoyalty {
		t.Fatalf("unexpected tags %#v", tags)
	}
	if generator.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", generator.calls)
	}
}

func TestClassifyExhaustsRetriesAndDefaults(t *testing.T) {
	boom := errors.New("overloaded")
	generator := &stubGenerator{errs: []error{boom, boom, boom, boom}}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags != tagging.DefaultTags {
		t.Fatalf("expected defaults, got %#v", tags)
	}
	if generator.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", generator.calls)
	}
}

func TestClassifyNormalizesCase(t *testing.T) {
	generator := &stubGenerator{responses: []string{
		`{"meeting_type": "Project_Meeting", "meeting_topic": "BUSINESS"}`,
	}}
	tags := newClassifier(t, generator).Classify(context.Background(), "a summary")
	if tags.MeetingType != tagging.TypeProject || tags.MeetingTopic != tagging.TopicBusiness {
		t.Fatalf("unexpected tags %#v", tags)
	}
}
