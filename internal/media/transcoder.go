package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"minutes/internal/config"
)

const (
	// FFmpegCommand is the default ffmpeg binary name.
	FFmpegCommand = "ffmpeg"
	// FFprobeCommand is the default ffprobe binary name.
	FFprobeCommand = "ffprobe"

	segmentFilePattern = "segment_%03d.mp3"
	segmentGlob        = "segment_*.mp3"
)

// Transcoder converts downloaded recordings into MP3 audio and slices the
// audio into fixed-length segments for transcription.
type Transcoder struct {
	ffmpegBinary  string
	ffprobeBinary string
	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewTranscoder builds a transcoder using the binaries named in config.
func NewTranscoder(cfg *config.Config) *Transcoder {
	ffmpeg := strings.TrimSpace(cfg.Pipeline.FFmpegBinary)
	if ffmpeg == "" {
		ffmpeg = FFmpegCommand
	}
	ffprobe := strings.TrimSpace(cfg.Pipeline.FFprobeBinary)
	if ffprobe == "" {
		ffprobe = FFprobeCommand
	}
	return &Transcoder{ffmpegBinary: ffmpeg, ffprobeBinary: ffprobe}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Transcoder) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	t.commandRunner = runner
}

func (t *Transcoder) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if t.commandRunner != nil {
		return t.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

// CheckBinaries verifies that ffmpeg and ffprobe can be located before any
// pipeline work starts.
func (t *Transcoder) CheckBinaries() error {
	for _, binary := range []string{t.ffmpegBinary, t.ffprobeBinary} {
		if _, err := exec.LookPath(binary); err != nil {
			return fmt.Errorf("locate %s: %w", binary, err)
		}
	}
	return nil
}

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the duration of a media file in seconds.
func (t *Transcoder) ProbeDuration(ctx context.Context, path string) (float64, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("probe duration: empty path")
	}

	output, err := t.run(ctx, t.ffprobeBinary, "-v", "error", "-hide_banner", "-show_format", "-of", "json", "--", path)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	var result probeFormat
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("probe parse: %w", err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("probe parse duration %q: %w", result.Format.Duration, err)
	}
	return duration, nil
}

// ExtractAudio re-encodes the audio track of a recording into an MP3 file.
func (t *Transcoder) ExtractAudio(ctx context.Context, source, dest string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("extract audio: source path required")
	}
	if strings.TrimSpace(dest) == "" {
		return errors.New("extract audio: dest path required")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract audio: ensure output dir: %w", err)
	}

	args := []string{
		"-y",
		"-v", "error",
		"-i", source,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		dest,
	}
	if _, err := t.run(ctx, t.ffmpegBinary, args...); err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	if _, err := os.Stat(dest); err != nil {
		return fmt.Errorf("extract audio: output missing: %w", err)
	}
	return nil
}

// SplitAudio slices an MP3 file into fixed-length segments inside destDir and
// returns the ordered segment paths. Producing zero segments is an error.
func (t *Transcoder) SplitAudio(ctx context.Context, source, destDir string, segmentSeconds int) ([]string, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("split audio: source path required")
	}
	if segmentSeconds <= 0 {
		return nil, fmt.Errorf("split audio: invalid segment length %d", segmentSeconds)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("split audio: ensure output dir: %w", err)
	}

	args := []string{
		"-y",
		"-v", "error",
		"-i", source,
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		"-c", "copy",
		filepath.Join(destDir, segmentFilePattern),
	}
	if _, err := t.run(ctx, t.ffmpegBinary, args...); err != nil {
		return nil, fmt.Errorf("split audio: %w", err)
	}

	segments, err := filepath.Glob(filepath.Join(destDir, segmentGlob))
	if err != nil {
		return nil, fmt.Errorf("split audio: list segments: %w", err)
	}
	if len(segments) == 0 {
		return nil, errors.New("split audio: no segments produced")
	}
	sort.Strings(segments)
	return segments, nil
}
