package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadworks/tourhub/internal/domain/job"
	"github.com/nomadworks/tourhub/internal/http/handlers"
	"github.com/nomadworks/tourhub/internal/repo/postgres"
)

type fakeAdminJobsRepo struct {
	listFn      func(ctx context.Context, status *string, limit int, afterUpdatedAt time.Time, afterID string) ([]job.Job, *string, bool, error)
	getFn       func(ctx context.Context, id string) (job.Job, error)
	retryFn     func(ctx context.Context, id string) error
	retryManyFn func(ctx context.Context, limit int) (int64, error)
}

func (f *fakeAdminJobsRepo) ListCursor(
	ctx context.Context,
	status *string,
	limit int,
	afterUpdatedAt time.Time,
	afterID string,
) ([]job.Job, *string, bool, error) {
	if f.listFn != nil {
		return f.listFn(ctx, status, limit, afterUpdatedAt, afterID)
	}

	return nil, nil, false, nil
}

func (f *fakeAdminJobsRepo) GetByID(ctx context.Context, id string) (job.Job, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}

	return job.Job{}, nil
}

func (f *fakeAdminJobsRepo) Retry(ctx context.Context, id string) error {
	if f.retryFn != nil {
		return f.retryFn(ctx, id)
	}

	return nil
}

func (f *fakeAdminJobsRepo) RetryManyFailed(ctx context.Context, limit int) (int64, error) {
	if f.retryManyFn != nil {
		return f.retryManyFn(ctx, limit)
	}

	return 0, nil
}

func TestListJobsHandler(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name           string
		url            string
		repoSetup      func(*fakeAdminJobsRepo)
		wantStatusCode int
		wantCount      int
	}{
		{
			name: "first_page_uses_descending_sentinel",
			url:  "/admin/jobs?limit=20",
			repoSetup: func(f *fakeAdminJobsRepo) {
				f.listFn = func(ctx context.Context, status *string, limit int, afterUpdatedAt time.Time, afterID string) ([]job.Job, *string, bool, error) {
					// newest-first pagination: the first page starts from the far future
					if !afterUpdatedAt.After(now.AddDate(1000, 0, 0)) {
						return nil, nil, false, errors.New("first page sentinel not in the far future")
					}
					return []job.Job{
						{ID: newUUID(), Type: "enrollment.confirmation", Status: "failed", UpdatedAt: now},
					}, nil, false, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      1,
		},
		{
			name: "status_filter_is_forwarded",
			url:  "/admin/jobs?status=failed",
			repoSetup: func(f *fakeAdminJobsRepo) {
				f.listFn = func(ctx context.Context, status *string, limit int, afterUpdatedAt time.Time, afterID string) ([]job.Job, *string, bool, error) {
					if status == nil || *status != "failed" {
						return nil, nil, false, errors.New("status filter not forwarded")
					}
					return []job.Job{}, nil, false, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantCount:      0,
		},
		{
			name:           "invalid_cursor",
			url:            "/admin/jobs?cursor=!!!",
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "limit_out_of_range",
			url:            "/admin/jobs?limit=1000",
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAdminJobsRepo{}

			if tt.repoSetup != nil {
				tt.repoSetup(repo)
			}

			h := handlers.NewAdminJobsHandler(repo)
			r := setupRouter(http.MethodGet, "/admin/jobs", h.List)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Count int `json:"count"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Count != tt.wantCount {
					t.Fatalf("got count %d, want %d", resp.Count, tt.wantCount)
				}
			}
		})
	}
}

func TestRetryJobHandler(t *testing.T) {
	jobID := newUUID()

	tests := []struct {
		name           string
		retryErr       error
		wantStatusCode int
	}{
		{
			name:           "success",
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not_found",
			retryErr:       job.ErrJobNotFound,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "only_failed_jobs_can_be_retried",
			retryErr:       postgres.ErrJobNotFailed,
			wantStatusCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeAdminJobsRepo{
				retryFn: func(ctx context.Context, id string) error {
					return tt.retryErr
				},
			}

			h := handlers.NewAdminJobsHandler(repo)
			r := setupRouter(http.MethodPost, "/admin/jobs/:id/retry", h.Retry)

			req := httptest.NewRequest(http.MethodPost, "/admin/jobs/"+jobID+"/retry", nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestReprocessDeadHandler(t *testing.T) {
	repo := &fakeAdminJobsRepo{
		retryManyFn: func(ctx context.Context, limit int) (int64, error) {
			if limit != 50 {
				t.Fatalf("expected default limit 50, got %d", limit)
			}
			return 7, nil
		},
	}

	h := handlers.NewAdminJobsHandler(repo)
	r := setupRouter(http.MethodPost, "/admin/dead-jobs/reprocess", h.ReprocessDead)

	req := httptest.NewRequest(http.MethodPost, "/admin/dead-jobs/reprocess", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Requeued int64 `json:"requeued"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Requeued != 7 {
		t.Fatalf("got requeued %d, want 7", resp.Requeued)
	}
}
