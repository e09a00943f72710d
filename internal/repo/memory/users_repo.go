package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/domain/user"
)

// UsersRepo is the in-memory stand-in for the Postgres store, used by handler
// tests and local development without a database. Writes apply immediately;
// the no-op transaction only satisfies the store contract.
type UsersRepo struct {
	mu      sync.RWMutex
	byEmail map[string]user.User
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byEmail: make(map[string]user.User),
	}
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return noopTx{}, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[email]

	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) CreateTx(ctx context.Context, tx pgx.Tx, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[u.Email]; exists {
		return user.ErrEmailTaken
	}

	r.byEmail[u.Email] = u
	return nil
}

func (r *UsersRepo) SetResetTokenTx(ctx context.Context, tx pgx.Tx, userID, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, u := range r.byEmail {
		if u.ID == userID {
			u.ResetToken = &token
			u.ResetTokenExpiry = &expiry
			u.UpdatedAt = time.Now().UTC()
			r.byEmail[email] = u
			return nil
		}
	}

	return user.ErrNotFound
}

func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, u := range r.byEmail {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			u.EmailVerified = true
			u.VerificationToken = nil
			u.UpdatedAt = time.Now().UTC()
			r.byEmail[email] = u
			return u.ID, nil
		}
	}

	return "", user.ErrTokenInvalid
}

func (r *UsersRepo) ConsumeResetToken(ctx context.Context, token, newHash string, now time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for email, u := range r.byEmail {
		if u.ResetToken == nil || *u.ResetToken != token {
			continue
		}

		if u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(now) {
			// Expired tokens look exactly like unknown ones.
			break
		}

		u.PasswordHash = newHash
		u.ResetToken = nil
		u.ResetTokenExpiry = nil
		u.UpdatedAt = time.Now().UTC()
		r.byEmail[email] = u
		return u.ID, nil
	}

	return "", user.ErrTokenInvalid
}

// Seed inserts a user directly, bypassing the store contract. Test helper.
func (r *UsersRepo) Seed(u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byEmail[u.Email] = u
}

// JobsRepo collects enqueued outbox jobs so tests can assert on them.
type JobsRepo struct {
	mu   sync.Mutex
	jobs []job.Job
}

func NewJobsRepo() *JobsRepo {
	return &JobsRepo{}
}

func (r *JobsRepo) CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error) {
	j := job.New(req)

	r.mu.Lock()
	r.jobs = append(r.jobs, j)
	r.mu.Unlock()

	return j, nil
}

func (r *JobsRepo) All() []job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]job.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// noopTx satisfies pgx.Tx for the in-memory store; every write already
// happened by the time Commit is called.
type noopTx struct{}

func (noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(ctx context.Context) error          { return nil }
func (noopTx) Rollback(ctx context.Context) error        { return nil }

func (noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }

func (noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (noopTx) Conn() *pgx.Conn                                               { return nil }
