package testsupport

import (
	"context"
	"testing"

	"minutes/internal/config"
	"minutes/internal/runs"
)

// MustOpenStore opens a runs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *runs.Store {
	t.Helper()

	store, err := runs.Open(cfg)
	if err != nil {
		t.Fatalf("runs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a run for tests using the provided store.
func NewRun(t testing.TB, store *runs.Store, title, token string) *runs.Run {
	t.Helper()

	run, err := store.CreateRun(context.Background(), runs.NewRun{
		SourceToken: token,
		Title:       title,
	})
	if err != nil {
		t.Fatalf("store.CreateRun: %v", err)
	}
	return run
}
