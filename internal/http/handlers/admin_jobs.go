package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/repo/postgres"
)

type AdminJobsRepo interface {
	GetByID(ctx context.Context, id string) (job.Job, error)
	Retry(ctx context.Context, id string) error
	RetryManyFailed(ctx context.Context, limit int) (int64, error)
}

// AdminJobsHandler exposes the outbox to operators, mainly so a dead-lettered
// verification or reset mail can be resent without touching the database.
type AdminJobsHandler struct {
	repo AdminJobsRepo
}

func NewAdminJobsHandler(repo AdminJobsRepo) *AdminJobsHandler {
	return &AdminJobsHandler{repo: repo}
}

// GET /api/admin/jobs/:id
func (h *AdminJobsHandler) Get(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	j, err := h.repo.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			RespondNotFound(ctx, "Job not found")
			return
		}

		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"job": j})
}

// POST /api/admin/jobs/:id/retry
func (h *AdminJobsHandler) Retry(ctx *gin.Context) {
	id := ctx.Param("id")

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	err := h.repo.Retry(cctx, id)

	if err != nil {
		switch {
		case errors.Is(err, job.ErrJobNotFound):
			RespondNotFound(ctx, "Job not found")
		case errors.Is(err, postgres.ErrJobNotFailed):
			RespondConflict(ctx, "job_not_failed")
		default:
			RespondInternal(ctx)
		}
		return
	}

	RespondMessage(ctx, http.StatusOK, "Job requeued")
}

// POST /api/admin/jobs/reprocess-dead?limit=50
func (h *AdminJobsHandler) ReprocessDead(ctx *gin.Context) {
	limit := parseIntDefault(ctx.Query("limit"), 50)

	if limit < 1 || limit > 500 {
		RespondBadRequest(ctx, "limit must be between 1 and 500", nil)
		return
	}

	cctx, cancel := config.WithTimeout(5 * time.Second)

	defer cancel()

	n, err := h.repo.RetryManyFailed(cctx, limit)

	if err != nil {
		RespondInternal(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"requeued": n})
}

func parseIntDefault(s string, fallback int) int {
	if s == "" {
		return fallback
	}

	n, err := strconv.Atoi(s)

	if err != nil {
		return fallback
	}

	return n
}
