package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"minutes/internal/config"
	"minutes/internal/logs"
)

func TestTailLastLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minutes.log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var lines []string
	err := logs.Tail(context.Background(), path, logs.Options{Limit: 2}, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", lines)
	}
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minutes.log")
	err := logs.Tail(context.Background(), path, logs.Options{Limit: 5}, func(string) {
		t.Error("no lines expected for a missing file")
	})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
}

func TestTailFollowPicksUpAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minutes.log")
	if err := os.WriteFile(path, []byte("start\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.Options{Limit: 1, Follow: true, Interval: 10 * time.Millisecond}, func(line string) {
			got <- line
		})
	}()

	waitLine := func(want string) {
		t.Helper()
		select {
		case line := <-got:
			if line != want {
				t.Fatalf("line = %q, want %q", line, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}

	waitLine("start")

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	waitLine("later")

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("follow returned %v, want context.Canceled", err)
	}
}

func TestPathUsesLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = "/var/log/minutes"
	if got := logs.Path(&cfg); got != filepath.Join("/var/log/minutes", logs.FileName) {
		t.Fatalf("Path = %q", got)
	}
}
