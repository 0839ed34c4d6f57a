package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"minutes/internal/config"
	"minutes/internal/lark"
	"minutes/internal/logging"
	"minutes/internal/runs"
	"minutes/internal/services"
)

// Processor executes one pipeline run. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, meetingURL string) (*runs.Run, error)
}

// Daemon coordinates webhook-triggered runs and enforces single-instance
// execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *runs.Store
	processor Processor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc

	api *apiServer

	// runMu serializes pipeline runs; the pipeline is one-shot by design.
	runMu sync.Mutex

	// stateMu orders the running check in Trigger against the shutdown in
	// Stop so no run registers with inFlight after Stop starts waiting.
	stateMu  sync.Mutex
	inFlight sync.WaitGroup
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *runs.Store, logger *slog.Logger, processor Processor) (*Daemon, error) {
	if cfg == nil || store == nil || processor == nil {
		return nil, errors.New("daemon requires config, store, and processor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "minutesd.lock")
	d := &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		processor: processor,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, d.logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// LockFilePath reports where the instance lock lives.
func (d *Daemon) LockFilePath() string { return d.lockPath }

// APIAddr reports the bound API listener address, or empty before Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Start acquires the instance lock and brings up the HTTP surface.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another minutes daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock_file", d.lockPath))
	return nil
}

// Stop shuts down the HTTP surface, waits for in-flight runs, and releases
// the lock.
func (d *Daemon) Stop() {
	d.stateMu.Lock()
	wasRunning := d.running.Swap(false)
	d.stateMu.Unlock()
	if !wasRunning {
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.api != nil {
		d.api.stop()
	}
	d.inFlight.Wait()
	_ = d.lock.Unlock()
	d.logger.Info("daemon stopped")
}

// Wait blocks until the daemon context ends.
func (d *Daemon) Wait() {
	if d.ctx == nil {
		return
	}
	<-d.ctx.Done()
}

// Trigger validates the meeting URL and launches a pipeline run in the
// background. It returns the extracted source token for the acknowledgement.
func (d *Daemon) Trigger(meetingURL string) (string, error) {
	token, err := lark.ExtractMinuteToken(meetingURL)
	if err != nil {
		return "", err
	}
	d.stateMu.Lock()
	if !d.running.Load() {
		d.stateMu.Unlock()
		return "", errors.New("daemon is not running")
	}
	d.inFlight.Add(1)
	d.stateMu.Unlock()

	requestID := uuid.NewString()
	go func() {
		defer d.inFlight.Done()
		d.runMu.Lock()
		defer d.runMu.Unlock()

		runCtx := services.WithRequestID(d.ctx, requestID)
		run, err := d.processor.Process(runCtx, meetingURL)
		if err != nil {
			fields := []logging.Attr{
				logging.String("source_token", token),
				logging.String(logging.FieldCorrelationID, requestID),
				logging.Error(err),
			}
			if run != nil {
				fields = append(fields, logging.Int64(logging.FieldRunID, run.ID))
			}
			d.logger.Error("pipeline run failed", logging.Args(fields...)...)
			return
		}
		d.logger.Info("pipeline run finished",
			logging.Int64(logging.FieldRunID, run.ID),
			logging.String(logging.FieldCorrelationID, requestID),
			logging.String("status", string(run.Status)),
		)
	}()
	return token, nil
}
