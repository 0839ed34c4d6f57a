package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"minutes/internal/logging"
	"minutes/internal/runs"
	"minutes/internal/testsupport"
)

type stubProcessor struct {
	mu    sync.Mutex
	urls  []string
	run   *runs.Run
	err   error
	done  chan struct{}
	delay time.Duration
}

func newStubProcessor() *stubProcessor {
	return &stubProcessor{
		run:  &runs.Run{ID: 1, Status: runs.StatusCompleted},
		done: make(chan struct{}, 8),
	}
}

func (p *stubProcessor) Process(ctx context.Context, meetingURL string) (*runs.Run, error) {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
		}
	}
	p.mu.Lock()
	p.urls = append(p.urls, meetingURL)
	p.mu.Unlock()
	p.done <- struct{}{}
	return p.run, p.err
}

func (p *stubProcessor) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

func newTestDaemon(t *testing.T, processor Processor) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d, err := New(cfg, store, logging.NewNop(), processor)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d
}

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t, newStubProcessor())

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected bound api address after start")
	}
	d.Stop()
}

func TestDaemonSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first, err := New(cfg, store, logging.NewNop(), newStubProcessor())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := New(cfg, store, logging.NewNop(), newStubProcessor())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail lock acquisition")
	}
}

func TestTriggerRunsPipeline(t *testing.T) {
	processor := newStubProcessor()
	d := newTestDaemon(t, processor)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	url := "https://example.larksuite.com/minutes/obcnabc123"
	token, err := d.Trigger(url)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if token != "obcnabc123" {
		t.Fatalf("token = %q", token)
	}

	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline run never executed")
	}
	if calls := processor.calls(); len(calls) != 1 || calls[0] != url {
		t.Fatalf("unexpected processor calls: %v", calls)
	}
}

func TestTriggerRejectsInvalidURL(t *testing.T) {
	d := newTestDaemon(t, newStubProcessor())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if _, err := d.Trigger("https://example.com/not-a-minute"); err == nil {
		t.Fatal("expected error for URL without minute token")
	}
}

func TestTriggerRequiresRunningDaemon(t *testing.T) {
	d := newTestDaemon(t, newStubProcessor())
	if _, err := d.Trigger("https://example.larksuite.com/minutes/obcnabc123"); err == nil {
		t.Fatal("expected error before Start")
	}
}

func TestTriggerAfterStopRejected(t *testing.T) {
	processor := newStubProcessor()
	d := newTestDaemon(t, processor)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()

	if _, err := d.Trigger("https://example.larksuite.com/minutes/obcnabc123"); err == nil {
		t.Fatal("expected error after Stop")
	}
	if calls := processor.calls(); len(calls) != 0 {
		t.Fatalf("no run may start after Stop, calls = %v", calls)
	}
}

func TestStopWaitsForInFlightRuns(t *testing.T) {
	processor := newStubProcessor()
	processor.delay = 100 * time.Millisecond
	d := newTestDaemon(t, processor)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := d.Trigger("https://example.larksuite.com/minutes/obcnabc123"); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	d.Stop()

	if calls := processor.calls(); len(calls) != 1 {
		t.Fatalf("expected run to finish before Stop returned, calls = %v", calls)
	}
}
