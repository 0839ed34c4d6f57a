package media_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"minutes/internal/media"
	"minutes/internal/testsupport"
)

func TestProbeDurationParsesFFprobeOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)

	var gotArgs []string
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(`{"format":{"duration":"3723.45"}}`), nil
	})

	duration, err := transcoder.ProbeDuration(context.Background(), "/tmp/recording.mp4")
	if err != nil {
		t.Fatalf("ProbeDuration failed: %v", err)
	}
	if duration != 3723.45 {
		t.Fatalf("expected 3723.45, got %f", duration)
	}
	if gotArgs[0] != "ffprobe" {
		t.Fatalf("expected ffprobe invocation, got %v", gotArgs)
	}
}

func TestProbeDurationRejectsMalformedOutput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(`{"format":{}}`), nil
	})

	if _, err := transcoder.ProbeDuration(context.Background(), "/tmp/recording.mp4"); err == nil {
		t.Fatal("expected error for missing duration")
	}
}

func TestExtractAudioBuildsMP3Command(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)

	dest := filepath.Join(t.TempDir(), "audio.mp3")
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "libmp3lame") {
			t.Fatalf("expected libmp3lame codec in args, got %q", joined)
		}
		if !strings.Contains(joined, "-q:a 2") {
			t.Fatalf("expected VBR quality flag in args, got %q", joined)
		}
		testsupport.WriteFile(t, dest, 16)
		return nil, nil
	})

	if err := transcoder.ExtractAudio(context.Background(), "/tmp/recording.mp4", dest); err != nil {
		t.Fatalf("ExtractAudio failed: %v", err)
	}
}

func TestExtractAudioFailsWhenOutputMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	})

	dest := filepath.Join(t.TempDir(), "audio.mp3")
	if err := transcoder.ExtractAudio(context.Background(), "/tmp/recording.mp4", dest); err == nil {
		t.Fatal("expected error when ffmpeg produced no output file")
	}
}

func TestSplitAudioReturnsOrderedSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)

	destDir := t.TempDir()
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		joined := strings.Join(args, " ")
		if !strings.Contains(joined, "-segment_time 1500") {
			t.Fatalf("expected segment length in args, got %q", joined)
		}
		for i := 0; i < 3; i++ {
			testsupport.WriteFile(t, filepath.Join(destDir, fmt.Sprintf("segment_%03d.mp3", i)), 8)
		}
		return nil, nil
	})

	segments, err := transcoder.SplitAudio(context.Background(), "/tmp/audio.mp3", destDir, 1500)
	if err != nil {
		t.Fatalf("SplitAudio failed: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	for i, segment := range segments {
		want := fmt.Sprintf("segment_%03d.mp3", i)
		if filepath.Base(segment) != want {
			t.Fatalf("segment %d: expected %s, got %s", i, want, filepath.Base(segment))
		}
	}
}

func TestSplitAudioFailsOnZeroSegments(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	transcoder := media.NewTranscoder(cfg)
	transcoder.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	})

	if _, err := transcoder.SplitAudio(context.Background(), "/tmp/audio.mp3", t.TempDir(), 1500); err == nil {
		t.Fatal("expected error when no segments were produced")
	}
}
