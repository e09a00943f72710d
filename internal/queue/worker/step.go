package worker

import (
	"context"
	"errors"
	"time"

	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/jobs"
	"github.com/mhofmann/membersite/internal/mail"
)

// ProcessOne claims and executes a single job. The bool reports whether a job
// was claimed at all, so the caller knows when the outbox is drained.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err = w.execute(ctx, j)

	if err != nil {
		w.observeJob(j.Type, "retry", start)
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		w.observeJob(j.Type, "failed", start)
		return true, err
	}

	w.observeJob(j.Type, "done", start)
	w.log.Info("job done", "job_id", j.ID, "type", j.Type, "attempt", j.Attempts)

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	payload, err := jobs.DecodePayload(j)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(jobs.JobType(j.Type), payload); err != nil {
		return err
	}

	var email mail.Email

	switch p := payload.(type) {
	case jobs.SendVerificationEmailPayload:
		email, err = mail.VerificationEmail(w.cfg.BaseURL, p.Locale, p.Token)
		if err != nil {
			return err
		}
		return w.mailer.Send(ctx, p.Email, email.Subject, email.HTML)

	case jobs.SendPasswordResetEmailPayload:
		email, err = mail.PasswordResetEmail(w.cfg.BaseURL, p.Locale, p.Token)
		if err != nil {
			return err
		}
		return w.mailer.Send(ctx, p.Email, email.Subject, email.HTML)

	default:
		return jobs.ErrInvalidJobType
	}
}

// handleFailure either reschedules with backoff or dead-letters the job once
// the attempt budget is spent.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, cause error) {
	nextAttempt := j.Attempts + 1

	if nextAttempt >= j.MaxAttempts {
		if err := w.repo.MarkFailed(ctx, j.ID, cause.Error()); err != nil {
			w.log.Error("dead-letter failed", "job_id", j.ID, "error", err)
			return
		}

		w.log.Error("job dead-lettered", "job_id", j.ID, "type", j.Type, "attempts", nextAttempt, "cause", cause)
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	runAt := time.Now().UTC().Add(delay)

	if err := w.repo.Reschedule(ctx, j.ID, runAt, cause.Error()); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "error", err)
		return
	}

	w.log.Warn("job rescheduled", "job_id", j.ID, "type", j.Type, "attempt", nextAttempt, "delay", delay, "cause", cause)
}

func (w *Worker) observeJob(jobType, result string, start time.Time) {
	if w.prom == nil {
		return
	}

	w.prom.JobResults.WithLabelValues(jobType, result).Inc()
	w.prom.JobDuration.WithLabelValues(jobType, result).Observe(time.Since(start).Seconds())
}
