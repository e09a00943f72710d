package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/observability"
)

var ErrJobNotFailed = errors.New("job is not failed")

type JobsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewJobsRepo(pool *pgxpool.Pool, prom *observability.Prom) *JobsRepo {
	return &JobsRepo{pool: pool, prom: prom}
}

func (r *JobsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

const jobColumns = `id, type, payload, status, attempts, max_attempts,
		run_at, locked_at, locked_by, last_error, idempotency_key,
		created_at, updated_at`

func scanJob(row pgx.Row) (job.Job, error) {
	var j job.Job
	var status string

	err := row.Scan(
		&j.ID, &j.Type, &j.Payload, &status,
		&j.Attempts, &j.MaxAttempts,
		&j.RunAt, &j.LockedAt, &j.LockedBy,
		&j.LastError, &j.IdempotencyKey,
		&j.CreatedAt, &j.UpdatedAt,
	)

	if err != nil {
		return job.Job{}, err
	}

	j.Status = job.Status(status)
	return j, nil
}

func (r *JobsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	err := r.observe("jobs.create_tx", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO jobs (
			id, type, payload, status, attempts, max_attempts,
			run_at, locked_at, locked_by, last_error, idempotency_key,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
			j.ID, j.Type, j.Payload, string(j.Status), j.Attempts, j.MaxAttempts,
			j.RunAt, j.LockedAt, j.LockedBy, j.LastError, j.IdempotencyKey,
			j.CreatedAt, j.UpdatedAt,
		)
		return e
	})

	if err != nil {
		return job.Job{}, err
	}
	return j, nil
}

func (r *JobsRepo) Create(ctx context.Context, req job.CreateRequest) (j job.Job, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return
	}

	defer func() { _ = tx.Rollback(ctx) }()

	j, err = r.CreateTx(ctx, tx, req)
	if err != nil {
		return
	}

	err = tx.Commit(ctx)
	return
}

// ClaimNext claims one runnable job using the SKIP LOCKED pattern, so
// competing workers never double-claim.
func (r *JobsRepo) ClaimNext(ctx context.Context, workerID string) (job.Job, error) {
	var j job.Job
	var err error

	err = r.observe("jobs.claim_next", func() error {
		var e error
		j, e = scanJob(r.pool.QueryRow(ctx, `
		WITH next AS (
			SELECT id
			FROM jobs
			WHERE status = 'pending'
			  AND run_at <= NOW()
			  AND attempts < max_attempts
			ORDER BY run_at ASC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE jobs
		SET status = 'processing',
		    locked_at = NOW(),
		    locked_by = $1,
		    updated_at = NOW()
		WHERE id = (SELECT id FROM next)
		RETURNING `+jobColumns, workerID))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound // no job available
		}
		return job.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) MarkDone(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	err := r.observe("jobs.mark_done", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'done',
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

func (r *JobsRepo) MarkFailed(ctx context.Context, id string, errMsg string) error {
	var tag pgconn.CommandTag

	err := r.observe("jobs.mark_failed", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'failed',
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, errMsg)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

// Reschedule requeues a job for a retry with its attempt counter bumped.
func (r *JobsRepo) Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error {
	var tag pgconn.CommandTag

	err := r.observe("jobs.reschedule", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    attempts = attempts + 1,
		    run_at = $2,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, runAt, errMsg)
		return e
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return job.ErrJobNotFound
	}
	return nil
}

// RequeueStaleProcessing frees claims whose worker died mid-send.
func (r *JobsRepo) RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error) {
	secs := int64(lockTTL.Seconds())
	if secs <= 0 {
		secs = 30
	}

	var rows int64

	err := r.observe("jobs.requeue_stale", func() error {
		tag, e := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    locked_at = NULL,
		    locked_by = NULL,
		    updated_at = NOW()
		WHERE status = 'processing'
		  AND locked_at IS NOT NULL
		  AND locked_at < NOW() - ($1 * INTERVAL '1 second')
	`, secs)

		if e != nil {
			return e
		}
		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}

// Admin ops

func (r *JobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	var j job.Job

	err := r.observe("jobs.admin.get_by_id", func() error {
		var e error
		j, e = scanJob(r.pool.QueryRow(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id))
		return e
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job.Job{}, job.ErrJobNotFound
		}
		return job.Job{}, err
	}

	return j, nil
}

func (r *JobsRepo) Retry(ctx context.Context, id string) error {
	var tag pgconn.CommandTag

	// Status guard lives in the WHERE clause so a concurrent claim between a
	// check and the requeue can never resurrect a non-failed job.
	err := r.observe("jobs.admin.retry", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending',
		    attempts = 0,
		    run_at = NOW(),
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'failed'
	`, id)
		return e
	})

	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		var exists bool

		err := r.observe("jobs.admin.retry.exists", func() error {
			return r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists)
		})

		if err != nil {
			return err
		}

		if !exists {
			return job.ErrJobNotFound
		}
		return ErrJobNotFailed
	}

	return nil
}

// RetryManyFailed requeues up to limit dead-lettered jobs, newest first.
func (r *JobsRepo) RetryManyFailed(ctx context.Context, limit int) (int64, error) {
	var tag pgconn.CommandTag

	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	err := r.observe("jobs.admin.retry_many_failed", func() error {
		var e error
		tag, e = r.pool.Exec(ctx, `
		WITH picked AS (
			SELECT id
			FROM jobs
			WHERE status = 'failed'
			ORDER BY updated_at DESC
			LIMIT $1
		)
		UPDATE jobs
		SET status = 'pending',
		    attempts = 0,
		    run_at = NOW(),
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id IN (SELECT id FROM picked)
	`, limit)
		return e
	})

	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}
