package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enums

// JobMode selects the composition strategy for a render job.
type JobMode string

const (
	// ModeAutoStitch overlays a growing reveal onto each source clip and
	// concatenates the results.
	ModeAutoStitch JobMode = "auto_stitch"
	// ModePreEdited composites timestamp-gated reveals onto one pre-edited clip.
	ModePreEdited JobMode = "pre_edited"
)

func (m JobMode) Valid() bool {
	return m == ModeAutoStitch || m == ModePreEdited
}

// JobStatus is the lifecycle state of a render job. Ready and Failed are the
// only terminal states; everything in between is best-effort progress.
type JobStatus string

const (
	JobStatusPending       JobStatus = "pending"
	JobStatusDownloading   JobStatus = "downloading"
	JobStatusRendering     JobStatus = "rendering"
	JobStatusCompositing   JobStatus = "compositing"
	JobStatusConcatenating JobStatus = "concatenating"
	JobStatusPublishing    JobStatus = "publishing"
	JobStatusReady         JobStatus = "ready"
	JobStatusFailed        JobStatus = "failed"
)

// Terminal reports whether the status ends the job's lifecycle.
func (s JobStatus) Terminal() bool {
	return s == JobStatusReady || s == JobStatusFailed
}

// StringSlice is a JSON-encoded text column holding an ordered string list.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}
	return json.Unmarshal(bytes, s)
}

// FloatSlice is a JSON-encoded text column holding an ordered float list.
type FloatSlice []float64

func (f FloatSlice) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *FloatSlice) Scan(value interface{}) error {
	if value == nil {
		*f = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into FloatSlice", value)
	}
	return json.Unmarshal(bytes, f)
}

// Models

// Job is one ranked-list render job. Ranks is ordered: index 0 is "rank 1",
// the insertion order is the display order, and it is immutable once the job
// starts.
type Job struct {
	ID    uuid.UUID   `json:"id"`
	Mode  JobMode     `json:"mode"`
	Title string      `json:"title"`
	Ranks StringSlice `json:"ranks"`

	// SourceKeys are storage keys of the uploaded source clips. Auto-stitch
	// jobs carry one per clip; pre-edited jobs carry exactly one.
	SourceKeys StringSlice `json:"source_keys"`

	// TimestampMarks and EndTime drive the pre-edited reveal; unused for
	// auto-stitch jobs.
	TimestampMarks FloatSlice `json:"timestamp_marks,omitempty"`
	EndTime        *float64   `json:"end_time,omitempty"`

	WebhookURL *string `json:"webhook_url,omitempty"`

	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	OutputKey    *string   `json:"output_key,omitempty"`
	ThumbnailKey *string   `json:"thumbnail_key,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DTOs for API requests and responses

type CreateJobRequest struct {
	Mode           JobMode   `json:"mode"`
	Title          string    `json:"title"`
	Ranks          []string  `json:"ranks"`
	SourceKeys     []string  `json:"source_keys"`
	TimestampMarks []float64 `json:"timestamp_marks,omitempty"`
	EndTime        *float64  `json:"end_time,omitempty"`
	WebhookURL     *string   `json:"webhook_url,omitempty"`
}

type CreateJobResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status JobStatus `json:"status"`
}

// JobResponse is the polling-status object: the job row plus resolved
// artifact URLs when the job is ready.
type JobResponse struct {
	Job
	OutputURL    *string `json:"output_url,omitempty"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
}

type ListJobsResponse struct {
	Jobs   []JobResponse `json:"jobs"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// StatusUpdate is the webhook notification payload. Terminal statuses are
// delivered exactly once each; intermediate progress is best-effort.
type StatusUpdate struct {
	JobID        uuid.UUID `json:"job_id"`
	Status       JobStatus `json:"status"`
	Progress     int       `json:"progress"`
	OutputURL    *string   `json:"output_url,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
}
