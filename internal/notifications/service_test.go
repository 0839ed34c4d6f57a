package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"minutes/internal/notifications"
	"minutes/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(cfg)
	if err := svc.Publish(context.Background(), notifications.EventRunCompleted, notifications.Payload{"title": "Weekly Sync"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "run started",
			event:       notifications.EventRunStarted,
			payload:     notifications.Payload{"title": "Weekly Sync"},
			expectTitle: "Minutes - Run Started",
			expectBody:  "Processing started: Weekly Sync",
			expectTags:  "minutes,run,started",
		},
		{
			name:  "run completed with tags",
			event: notifications.EventRunCompleted,
			payload: notifications.Payload{
				"title":        "Weekly Sync",
				"meeting_tags": "recurring_meeting | business",
			},
			expectTitle:    "Minutes - Run Complete",
			expectBody:     "Transcript and summary ready: Weekly Sync\nTags: recurring_meeting | business",
			expectTags:     "minutes,run,completed",
			expectPriority: "high",
		},
		{
			name:  "run failed",
			event: notifications.EventRunFailed,
			payload: notifications.Payload{
				"title": "Weekly Sync",
				"stage": "convert",
				"error": errors.New("ffmpeg exited with status 1"),
			},
			expectTitle:    "Minutes - Run Failed",
			expectBody:     "Processing failed: Weekly Sync\nStage: convert\nError: ffmpeg exited with status 1",
			expectTags:     "minutes,run,failed",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotTitle, gotBody, gotTags, gotPriority string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				gotBody = string(body)
				gotTitle = r.Header.Get("Title")
				gotTags = r.Header.Get("Tags")
				gotPriority = r.Header.Get("Priority")
			}))
			defer server.Close()

			cfg := testsupport.NewConfig(t)
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.Runs = true
			cfg.Notifications.Errors = true
			svc := notifications.NewService(cfg)

			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
			if gotTitle != tc.expectTitle {
				t.Fatalf("title: got %q, want %q", gotTitle, tc.expectTitle)
			}
			if gotBody != tc.expectBody {
				t.Fatalf("body: got %q, want %q", gotBody, tc.expectBody)
			}
			if gotTags != tc.expectTags {
				t.Fatalf("tags: got %q, want %q", gotTags, tc.expectTags)
			}
			if gotPriority != tc.expectPriority {
				t.Fatalf("priority: got %q, want %q", gotPriority, tc.expectPriority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Runs = false
	cfg.Notifications.Errors = true
	svc := notifications.NewService(cfg)

	if err := svc.Publish(context.Background(), notifications.EventRunStarted, nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected run event suppressed, got %d calls", calls)
	}
	if err := svc.Publish(context.Background(), notifications.EventRunFailed, nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected error event delivered, got %d calls", calls)
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Errors = true
	svc := notifications.NewService(cfg)

	err := svc.Publish(context.Background(), notifications.EventError, notifications.Payload{"error": "boom"})
	if err == nil {
		t.Fatal("expected error from 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status in error, got %v", err)
	}
}
