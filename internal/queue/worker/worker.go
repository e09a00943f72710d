package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/mail"
	"github.com/mhofmann/membersite/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// Waiter blocks until a nudge arrives or the timeout passes. The redis client
// provides the real one; without redis the worker just sleeps the interval.
type Waiter interface {
	WaitNudge(ctx context.Context, timeout time.Duration) (bool, error)
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	BaseURL       string
	LockTTL       time.Duration
	StaleSweepGap time.Duration
}

type Worker struct {
	cfg    Config
	repo   JobsRepository
	mailer mail.Mailer
	waiter Waiter
	prom   *observability.Prom
	log    *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, mailer mail.Mailer, waiter Waiter, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	if cfg.StaleSweepGap <= 0 {
		cfg.StaleSweepGap = time.Minute
	}

	return &Worker{
		cfg:    cfg,
		repo:   repo,
		mailer: mailer,
		waiter: waiter,
		prom:   prom,
		log:    log,
	}
}

// Run drains the outbox until ctx is cancelled. Between drains it waits for a
// nudge (or the poll interval, whichever fires first); the poll is the source
// of truth, the nudge just shortens the latency.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	lastSweep := time.Time{}

	for {
		if ctx.Err() != nil {
			w.log.Info("worker shutting down")
			return nil
		}

		if time.Since(lastSweep) >= w.cfg.StaleSweepGap {
			n, err := w.repo.RequeueStaleProcessing(ctx, w.cfg.LockTTL)

			if err != nil {
				w.log.Error("stale sweep failed", "error", err)
			} else if n > 0 {
				w.log.Warn("requeued stale jobs", "count", n)
			}
			lastSweep = time.Now()
		}

		// Drain everything runnable before sleeping.
		for {
			processed, err := w.ProcessOne(ctx)

			if err != nil {
				w.log.Error("process job", "error", err)
			}

			if !processed || ctx.Err() != nil {
				break
			}
		}

		if ctx.Err() != nil {
			w.log.Info("worker shutting down")
			return nil
		}

		w.idle(ctx)
	}
}

func (w *Worker) idle(ctx context.Context) {
	if w.waiter != nil {
		if _, err := w.waiter.WaitNudge(ctx, w.cfg.PollInterval); err != nil && ctx.Err() == nil {
			w.log.Warn("nudge wait failed, falling back to sleep", "error", err)
		} else {
			return
		}
	}

	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
