package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rankforge/rankreel/internal/models"
	"github.com/rankforge/rankreel/internal/plan"
	"github.com/rankforge/rankreel/internal/queue"
)

// jobStore is the slice of the database layer the handlers use.
type jobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ListJobs(ctx context.Context, statusFilter string, limit, offset int) ([]models.Job, error)
	CountJobs(ctx context.Context, statusFilter string) (int, error)
	UpdateJobError(ctx context.Context, id uuid.UUID, errorMessage string) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
}

type jobQueue interface {
	EnqueueRenderJob(ctx context.Context, jobID uuid.UUID) error
	GetQueueLength(ctx context.Context, queueName string) (int64, error)
}

type objectStore interface {
	GetPublicURL(path string) string
	GetSignedURL(ctx context.Context, path string, expiresIn int) (string, error)
	Exists(ctx context.Context, path string) (bool, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

type Handler struct {
	db      jobStore
	queue   jobQueue
	storage objectStore
}

func NewHandler(database jobStore, q jobQueue, stor objectStore) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// CreateJob handles POST /v1/jobs
//
// Plan construction runs here as a dry run so malformed mark lists fail at
// submission time instead of surfacing later as a failed job.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req models.CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Mode.Valid() {
		respondError(w, http.StatusBadRequest, "Mode must be auto_stitch or pre_edited")
		return
	}
	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "Title is required")
		return
	}
	if len(req.Ranks) == 0 {
		respondError(w, http.StatusBadRequest, "At least one rank entry is required")
		return
	}
	for _, rank := range req.Ranks {
		if rank == "" {
			respondError(w, http.StatusBadRequest, "Rank entries must not be empty")
			return
		}
	}
	if len(req.SourceKeys) == 0 {
		respondError(w, http.StatusBadRequest, "At least one source clip is required")
		return
	}

	switch req.Mode {
	case models.ModeAutoStitch:
		if _, err := plan.BuildStitchPlan(len(req.SourceKeys), len(req.Ranks)); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	case models.ModePreEdited:
		if len(req.SourceKeys) != 1 {
			respondError(w, http.StatusBadRequest, "Pre-edited jobs take exactly one source clip")
			return
		}
		if req.EndTime == nil {
			respondError(w, http.StatusBadRequest, "end_time is required for pre-edited jobs")
			return
		}
		if _, err := plan.BuildTimedPlan(req.TimestampMarks, *req.EndTime, len(req.Ranks)); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	job := &models.Job{
		ID:             uuid.New(),
		Mode:           req.Mode,
		Title:          req.Title,
		Ranks:          models.StringSlice(req.Ranks),
		SourceKeys:     models.StringSlice(req.SourceKeys),
		TimestampMarks: models.FloatSlice(req.TimestampMarks),
		EndTime:        req.EndTime,
		WebhookURL:     req.WebhookURL,
		Status:         models.JobStatusPending,
	}

	if err := h.db.CreateJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	if err := h.queue.EnqueueRenderJob(r.Context(), job.ID); err != nil {
		// The row is already persisted; mark it failed so no worker-less
		// pending job lingers for clients to poll forever.
		if dbErr := h.db.UpdateJobError(r.Context(), job.ID, "failed to enqueue render job"); dbErr != nil {
			log.Printf("[API] failed to mark unenqueued job %s as failed: %v", job.ID, dbErr)
		}
		respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
		return
	}

	respondJSON(w, http.StatusCreated, models.CreateJobResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// ListJobs handles GET /v1/jobs
// Query params:
//   - status: filter by job status
//   - limit:  max results per page (default 20, max 100)
//   - offset: number of results to skip (default 0)
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" {
		switch models.JobStatus(statusFilter) {
		case models.JobStatusPending, models.JobStatusDownloading,
			models.JobStatusRendering, models.JobStatusCompositing,
			models.JobStatusConcatenating, models.JobStatusPublishing,
			models.JobStatusReady, models.JobStatusFailed:
			// valid
		default:
			respondError(w, http.StatusBadRequest, "Invalid status filter. Allowed: pending, downloading, rendering, compositing, concatenating, publishing, ready, failed")
			return
		}
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	total, err := h.db.CountJobs(r.Context(), statusFilter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to count jobs")
		return
	}

	jobs, err := h.db.ListJobs(r.Context(), statusFilter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	responses := make([]models.JobResponse, 0, len(jobs))
	for _, job := range jobs {
		responses = append(responses, h.buildJobResponse(job))
	}

	respondJSON(w, http.StatusOK, models.ListJobsResponse{
		Jobs:   responses,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetJob handles GET /v1/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	respondJSON(w, http.StatusOK, h.buildJobResponse(*job))
}

// GetJobDownload handles GET /v1/jobs/{id}/download
func (h *Handler) GetJobDownload(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if job.Status != models.JobStatusReady || job.OutputKey == nil {
		respondError(w, http.StatusNotFound, "Video not ready")
		return
	}

	if ok, err := h.storage.Exists(r.Context(), *job.OutputKey); err == nil && !ok {
		respondError(w, http.StatusNotFound, "Video artifact missing from storage")
		return
	}

	// Get signed URL (valid for 1 hour)
	signedURL, err := h.storage.GetSignedURL(r.Context(), *job.OutputKey, 3600)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// DeleteJob handles DELETE /v1/jobs/{id}. Terminal jobs only: the stored
// sources and artifacts are released along with the row.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.db.GetJob(r.Context(), jobID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Job not found")
		return
	}

	if !job.Status.Terminal() {
		respondError(w, http.StatusConflict, "Job is still processing")
		return
	}

	if err := h.storage.DeletePrefix(r.Context(), job.ID.String()); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete job artifacts")
		return
	}

	if err := h.db.DeleteJob(r.Context(), jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) buildJobResponse(job models.Job) models.JobResponse {
	response := models.JobResponse{
		Job: job,
	}

	if job.OutputKey != nil {
		url := h.storage.GetPublicURL(*job.OutputKey)
		response.OutputURL = &url
	}
	if job.ThumbnailKey != nil {
		url := h.storage.GetPublicURL(*job.ThumbnailKey)
		response.ThumbnailURL = &url
	}

	return response
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check. Queue depth is best-effort; a redis hiccup doesn't fail the
// probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]interface{}{"status": "ok"}
	if h.queue != nil {
		if depth, err := h.queue.GetQueueLength(r.Context(), queue.QueueRenderJob); err == nil {
			payload["queue_depth"] = depth
		}
	}
	respondJSON(w, http.StatusOK, payload)
}
