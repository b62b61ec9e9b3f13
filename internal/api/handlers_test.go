package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rankforge/rankreel/internal/models"
)

// fakeStore records job writes in memory; only the methods CreateJob touches
// do anything.
type fakeStore struct {
	created    *models.Job
	failedWith map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{failedWith: make(map[uuid.UUID]string)}
}

func (s *fakeStore) CreateJob(ctx context.Context, job *models.Job) error {
	s.created = job
	return nil
}

func (s *fakeStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	if s.created != nil && s.created.ID == id {
		return s.created, nil
	}
	return nil, errors.New("not found")
}

func (s *fakeStore) ListJobs(ctx context.Context, statusFilter string, limit, offset int) ([]models.Job, error) {
	return nil, nil
}

func (s *fakeStore) CountJobs(ctx context.Context, statusFilter string) (int, error) {
	return 0, nil
}

func (s *fakeStore) UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error {
	s.failedWith[id] = errorMessage
	return nil
}

func (s *fakeStore) DeleteJob(ctx context.Context, id uuid.UUID) error {
	return nil
}

type fakeQueue struct {
	enqueueErr error
	enqueued   []uuid.UUID
}

func (q *fakeQueue) EnqueueRenderJob(ctx context.Context, jobID uuid.UUID) error {
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.enqueued = append(q.enqueued, jobID)
	return nil
}

func (q *fakeQueue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return int64(len(q.enqueued)), nil
}

// Validation rejections return before any database or queue access, so a
// zero-value handler is enough to exercise them.
func postJob(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewHandler(nil, nil, nil)
	req := httptest.NewRequest("POST", "/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)
	return rec
}

func TestCreateJobValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"unknown mode", `{"mode":"karaoke","title":"t","ranks":["a"],"source_keys":["k"]}`},
		{"missing title", `{"mode":"auto_stitch","ranks":["a"],"source_keys":["k"]}`},
		{"empty ranks", `{"mode":"auto_stitch","title":"t","ranks":[],"source_keys":["k"]}`},
		{"blank rank entry", `{"mode":"auto_stitch","title":"t","ranks":["a",""],"source_keys":["k"]}`},
		{"no sources", `{"mode":"auto_stitch","title":"t","ranks":["a"],"source_keys":[]}`},
		{"pre-edited multiple sources", `{"mode":"pre_edited","title":"t","ranks":["a"],"source_keys":["k","l"],"timestamp_marks":[1],"end_time":10}`},
		{"pre-edited missing end", `{"mode":"pre_edited","title":"t","ranks":["a"],"source_keys":["k"],"timestamp_marks":[1]}`},
		{"pre-edited mark count mismatch", `{"mode":"pre_edited","title":"t","ranks":["a","b"],"source_keys":["k"],"timestamp_marks":[1],"end_time":10}`},
		{"pre-edited descending marks", `{"mode":"pre_edited","title":"t","ranks":["a","b"],"source_keys":["k"],"timestamp_marks":[5,2],"end_time":10}`},
		{"pre-edited mark past end", `{"mode":"pre_edited","title":"t","ranks":["a"],"source_keys":["k"],"timestamp_marks":[10],"end_time":10}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJob(t, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateJobAccepted(t *testing.T) {
	store := newFakeStore()
	q := &fakeQueue{}
	h := NewHandler(store, q, nil)

	req := httptest.NewRequest("POST", "/v1/jobs",
		strings.NewReader(`{"mode":"auto_stitch","title":"t","ranks":["a"],"source_keys":["k"]}`))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.created == nil {
		t.Fatal("expected the job to be persisted")
	}
	if len(q.enqueued) != 1 || q.enqueued[0] != store.created.ID {
		t.Errorf("expected the persisted job to be enqueued, got %v", q.enqueued)
	}
}

// When the queue rejects the job after the row has been persisted, the row
// must be marked failed: a pending job no worker will ever pick up would poll
// as in-progress forever.
func TestCreateJobEnqueueFailureMarksJobFailed(t *testing.T) {
	store := newFakeStore()
	q := &fakeQueue{enqueueErr: errors.New("redis down")}
	h := NewHandler(store, q, nil)

	req := httptest.NewRequest("POST", "/v1/jobs",
		strings.NewReader(`{"mode":"auto_stitch","title":"t","ranks":["a"],"source_keys":["k"]}`))
	rec := httptest.NewRecorder()
	h.CreateJob(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if store.created == nil {
		t.Fatal("expected the job row to have been written before the enqueue")
	}
	if _, ok := store.failedWith[store.created.ID]; !ok {
		t.Error("expected the persisted job to be marked failed")
	}
}

func TestListJobsRejectsUnknownStatusFilter(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	req := httptest.NewRequest("GET", "/v1/jobs?status=sideways", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	protected := APIKeyAuth("secret")(next)

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/jobs", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/jobs", nil)
		req.Header.Set("X-API-Key", "nope")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("header key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/jobs", nil)
		req.Header.Set("X-API-Key", "secret")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})

	t.Run("bearer key", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/v1/jobs", nil)
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Errorf("expected 204, got %d", rec.Code)
		}
	})
}
