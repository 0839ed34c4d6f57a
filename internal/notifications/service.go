package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"minutes/internal/config"
)

const userAgent = "Minutes/0.1.0"

// Event identifies a notable pipeline occurrence.
type Event string

const (
	EventRunStarted   Event = "run_started"
	EventRunCompleted Event = "run_completed"
	EventRunFailed    Event = "run_failed"
	EventError        Event = "error"
	EventTest         Event = "test"
)

// Payload carries event-specific fields used to format the message.
type Payload map[string]any

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		sendRuns:   cfg.Notifications.Runs,
		sendErrors: cfg.Notifications.Errors,
	}
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	sendRuns   bool
	sendErrors bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if payload == nil {
		payload = Payload{}
	}
	switch event {
	case EventRunStarted, EventRunCompleted:
		if !n.sendRuns {
			return nil
		}
	case EventRunFailed, EventError:
		if !n.sendErrors {
			return nil
		}
	}
	return n.send(ctx, formatMessage(event, payload))
}

func formatMessage(event Event, payload Payload) message {
	title := stringField(payload, "title")
	switch event {
	case EventRunStarted:
		return message{
			title: "Minutes - Run Started",
			body:  fmt.Sprintf("Processing started: %s", title),
			tags:  []string{"minutes", "run", "started"},
		}
	case EventRunCompleted:
		body := fmt.Sprintf("Transcript and summary ready: %s", title)
		if tags := stringField(payload, "meeting_tags"); tags != "" {
			body = fmt.Sprintf("%s\nTags: %s", body, tags)
		}
		return message{
			title:    "Minutes - Run Complete",
			body:     body,
			tags:     []string{"minutes", "run", "completed"},
			priority: "high",
		}
	case EventRunFailed:
		body := fmt.Sprintf("Processing failed: %s", title)
		if stage := stringField(payload, "stage"); stage != "" {
			body = fmt.Sprintf("%s\nStage: %s", body, stage)
		}
		if reason := stringField(payload, "error"); reason != "" {
			body = fmt.Sprintf("%s\nError: %s", body, reason)
		}
		return message{
			title:    "Minutes - Run Failed",
			body:     body,
			tags:     []string{"minutes", "run", "failed"},
			priority: "high",
		}
	case EventError:
		body := "Error"
		if contextLabel := stringField(payload, "context"); contextLabel != "" {
			body = fmt.Sprintf("%s with %s", body, contextLabel)
		}
		if reason := stringField(payload, "error"); reason != "" {
			body = fmt.Sprintf("%s: %s", body, reason)
		}
		return message{
			title:    "Minutes - Error",
			body:     body,
			tags:     []string{"minutes", "error", "alert"},
			priority: "high",
		}
	case EventTest:
		return message{
			title:    "Minutes - Test",
			body:     "Notification system test",
			tags:     []string{"minutes", "test"},
			priority: "low",
		}
	default:
		return message{
			title: "Minutes",
			body:  string(event),
			tags:  []string{"minutes"},
		}
	}
}

func stringField(payload Payload, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
