package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/http/handlers"
	"github.com/mhofmann/membersite/internal/repo/postgres"
)

type fakeAdminJobsRepo struct {
	jobs    map[string]job.Job
	retried []string
}

func (f *fakeAdminJobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return job.Job{}, job.ErrJobNotFound
	}
	return j, nil
}

func (f *fakeAdminJobsRepo) Retry(ctx context.Context, id string) error {
	j, ok := f.jobs[id]
	if !ok {
		return job.ErrJobNotFound
	}
	if j.Status != job.StatusFailed {
		return postgres.ErrJobNotFailed
	}
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeAdminJobsRepo) RetryManyFailed(ctx context.Context, limit int) (int64, error) {
	var n int64
	for id, j := range f.jobs {
		if j.Status == job.StatusFailed && n < int64(limit) {
			f.retried = append(f.retried, id)
			n++
		}
	}
	return n, nil
}

func adminRouter(repo handlers.AdminJobsRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)

	h := handlers.NewAdminJobsHandler(repo)

	r := gin.New()
	r.GET("/api/admin/jobs/:id", h.Get)
	r.POST("/api/admin/jobs/:id/retry", h.Retry)
	r.POST("/api/admin/jobs/reprocess-dead", h.ReprocessDead)
	return r
}

func TestAdminRetryStatusMapping(t *testing.T) {
	repo := &fakeAdminJobsRepo{jobs: map[string]job.Job{
		"dead":    {ID: "dead", Status: job.StatusFailed},
		"running": {ID: "running", Status: job.StatusProcessing},
	}}

	r := adminRouter(repo)

	tests := []struct {
		id       string
		wantCode int
		wantBody string
	}{
		{"dead", http.StatusOK, "Job requeued"},
		{"running", http.StatusConflict, "job_not_failed"},
		{"missing", http.StatusNotFound, "Job not found"},
	}

	for _, tc := range tests {
		t.Run(tc.id, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/admin/jobs/"+tc.id+"/retry", nil)

			r.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantCode)
			}

			if !strings.Contains(w.Body.String(), tc.wantBody) {
				t.Errorf("body = %s, want %q", w.Body.String(), tc.wantBody)
			}
		})
	}

	if len(repo.retried) != 1 || repo.retried[0] != "dead" {
		t.Errorf("retried = %v, only the failed job may be requeued", repo.retried)
	}
}

func TestAdminReprocessDead(t *testing.T) {
	repo := &fakeAdminJobsRepo{jobs: map[string]job.Job{
		"a": {ID: "a", Status: job.StatusFailed},
		"b": {ID: "b", Status: job.StatusFailed},
		"c": {ID: "c", Status: job.StatusDone},
	}}

	r := adminRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/jobs/reprocess-dead?limit=50", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if !strings.Contains(w.Body.String(), `"requeued":2`) {
		t.Errorf("body = %s, want requeued=2", w.Body.String())
	}

	// out-of-range limit is rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/admin/jobs/reprocess-dead?limit=9999", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for limit out of range", w.Code)
	}
}
