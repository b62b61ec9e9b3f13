package worker

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rankforge/rankreel/internal/db"
	"github.com/rankforge/rankreel/internal/models"
	"github.com/rankforge/rankreel/internal/notify"
	"github.com/rankforge/rankreel/internal/plan"
	"github.com/rankforge/rankreel/internal/queue"
	"github.com/rankforge/rankreel/internal/render"
	"github.com/rankforge/rankreel/internal/services"
	"github.com/rankforge/rankreel/internal/storage"
)

// Stage names a pipeline phase for failure classification. The worker is the
// single point that maps stage failures to a terminal status message.
type Stage string

const (
	StageValidate  Stage = "validation"
	StageFetch     Stage = "download"
	StageRender    Stage = "render"
	StageTranscode Stage = "transcode"
	StagePublish   Stage = "publish"
)

// StageError tags a pipeline failure with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}

type Worker struct {
	db        *db.DB
	queue     *queue.Queue
	storage   *storage.Storage
	ffmpeg    *services.FFmpegService
	overlay   *render.OverlayRenderer
	emoji     *render.GlyphCache
	notifier  *notify.Notifier
	tempDir   string
	uploadSem chan struct{} // Limits concurrent Supabase uploads to prevent congestion
}

func New(
	database *db.DB,
	q *queue.Queue,
	stor *storage.Storage,
	ffmpegSvc *services.FFmpegService,
	overlayRenderer *render.OverlayRenderer,
	emojiCache *render.GlyphCache,
	notifier *notify.Notifier,
	tempDir string,
) *Worker {
	return &Worker{
		db:        database,
		queue:     q,
		storage:   stor,
		ffmpeg:    ffmpegSvc,
		overlay:   overlayRenderer,
		emoji:     emojiCache,
		notifier:  notifier,
		tempDir:   tempDir,
		uploadSem: make(chan struct{}, 2),
	}
}

// uploadWithLimit wraps an upload call with a semaphore so large artifact
// uploads from concurrent jobs don't congest the storage backend.
func (w *Worker) uploadWithLimit(ctx context.Context, label string, fn func() error) error {
	select {
	case w.uploadSem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("upload cancelled while waiting for slot: %w", ctx.Err())
	}
	defer func() { <-w.uploadSem }()

	log.Printf("[Upload] %s uploading...", label)
	return fn()
}

// Start begins processing render jobs from the queue
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			qjob, err := w.queue.Dequeue(ctx, queue.QueueRenderJob, 5*time.Second)
			if err != nil {
				log.Printf("Error dequeuing render job: %v", err)
				continue
			}

			if qjob == nil {
				continue // No job available, retry
			}

			log.Printf("Processing render job %s", qjob.JobID)
			w.handleRenderJob(ctx, qjob.JobID)
		}
	}
}

// handleRenderJob owns the job's terminal status: it reports exactly one of
// ready or failed after the pipeline run.
func (w *Worker) handleRenderJob(ctx context.Context, jobID uuid.UUID) {
	job, err := w.db.GetJob(ctx, jobID)
	if err != nil {
		log.Printf("Job %s not loadable, dropping: %v", jobID, err)
		return
	}

	outputKey, thumbKey, runErr := w.executeJob(ctx, job)
	if runErr != nil {
		log.Printf("Job %s failed: %v", job.ID, runErr)
		if dbErr := w.db.UpdateJobError(ctx, job.ID, runErr.Error()); dbErr != nil {
			log.Printf("[Worker] failed to record job error: %v", dbErr)
		}
		errMsg := runErr.Error()
		w.reportTerminal(ctx, job, models.StatusUpdate{
			JobID:        job.ID,
			Status:       models.JobStatusFailed,
			ErrorMessage: &errMsg,
		})
		return
	}

	if err := w.db.SetJobOutput(ctx, job.ID, outputKey, thumbKey); err != nil {
		log.Printf("[Worker] failed to record job output: %v", err)
	}

	outputURL := w.storage.GetPublicURL(outputKey)
	w.reportTerminal(ctx, job, models.StatusUpdate{
		JobID:     job.ID,
		Status:    models.JobStatusReady,
		Progress:  100,
		OutputURL: &outputURL,
	})
	log.Printf("Job %s completed successfully", job.ID)
}

// executeJob runs the pipeline inside a per-job scratch directory and
// unconditionally releases the scratch files and the emoji cache regardless
// of where the pipeline stopped.
func (w *Worker) executeJob(ctx context.Context, job *models.Job) (string, string, error) {
	scratch := filepath.Join(w.tempDir, job.ID.String())
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			log.Printf("[Worker] failed to remove scratch dir %s: %v", scratch, err)
		}
		w.emoji.Clear()
	}()

	return w.runPipeline(ctx, job, scratch)
}

func (w *Worker) reportTerminal(ctx context.Context, job *models.Job, update models.StatusUpdate) {
	webhookURL := ""
	if job.WebhookURL != nil {
		webhookURL = *job.WebhookURL
	}
	if err := w.notifier.NotifyTerminal(ctx, webhookURL, update); err != nil {
		log.Printf("[Worker] terminal notification for job %s failed: %v", job.ID, err)
	}
}

// setStage records intermediate progress. Best-effort on both channels — a
// polling client must never mistake these for a terminal state.
func (w *Worker) setStage(ctx context.Context, job *models.Job, status models.JobStatus, progress int) {
	if err := w.db.UpdateJobStatus(ctx, job.ID, status, progress); err != nil {
		log.Printf("[Worker] failed to update job status: %v", err)
	}
	if job.WebhookURL != nil {
		w.notifier.NotifyProgress(ctx, *job.WebhookURL, models.StatusUpdate{
			JobID:    job.ID,
			Status:   status,
			Progress: progress,
		})
	}
}

// runPipeline drives download, render, composite, concatenate and publish,
// returning the published artifact keys. No partial output is ever uploaded:
// publishing happens only after the full plan has succeeded.
func (w *Worker) runPipeline(ctx context.Context, job *models.Job, scratch string) (string, string, error) {
	// Validate before any download or render work is spent.
	stitchPlan, timedPlan, err := w.buildPlan(job)
	if err != nil {
		return "", "", stageErr(StageValidate, err)
	}

	if err := os.MkdirAll(scratch, 0755); err != nil {
		return "", "", stageErr(StageFetch, fmt.Errorf("failed to create scratch dir: %w", err))
	}

	w.setStage(ctx, job, models.JobStatusDownloading, 10)
	clipPaths, err := w.downloadSources(ctx, job, scratch)
	if err != nil {
		return "", "", stageErr(StageFetch, err)
	}

	var finalPath string
	if job.Mode == models.ModeAutoStitch {
		finalPath, err = w.runStitch(ctx, job, scratch, clipPaths, stitchPlan)
	} else {
		finalPath, err = w.runTimed(ctx, job, scratch, clipPaths[0], timedPlan)
	}
	if err != nil {
		return "", "", err
	}

	w.setStage(ctx, job, models.JobStatusPublishing, 90)

	thumbPath := filepath.Join(scratch, "thumbnail.jpg")
	if err := w.ffmpeg.ExtractThumbnail(ctx, finalPath, thumbPath, 0.5); err != nil {
		return "", "", stageErr(StageTranscode, err)
	}

	outputKey := w.storage.GenerateStoragePath(job.ID, "final.mp4")
	if err := w.uploadWithLimit(ctx, "final_video", func() error {
		return w.storage.UploadFile(ctx, outputKey, finalPath, "video/mp4")
	}); err != nil {
		return "", "", stageErr(StagePublish, err)
	}

	thumbKey := w.storage.GenerateStoragePath(job.ID, "thumbnail.jpg")
	if err := w.uploadWithLimit(ctx, "thumbnail", func() error {
		return w.storage.UploadFile(ctx, thumbKey, thumbPath, "image/jpeg")
	}); err != nil {
		return "", "", stageErr(StagePublish, err)
	}

	return outputKey, thumbKey, nil
}

// buildPlan validates the job parameters and produces the composition plan
// for its mode. Exactly one of the returned plans is non-nil on success.
func (w *Worker) buildPlan(job *models.Job) (*plan.StitchPlan, *plan.TimedPlan, error) {
	if !job.Mode.Valid() {
		return nil, nil, fmt.Errorf("unknown job mode %q", job.Mode)
	}
	if job.Title == "" {
		return nil, nil, fmt.Errorf("title must not be empty")
	}
	if len(job.Ranks) == 0 {
		return nil, nil, fmt.Errorf("rank list must not be empty")
	}
	if len(job.SourceKeys) == 0 {
		return nil, nil, fmt.Errorf("at least one source clip is required")
	}

	switch job.Mode {
	case models.ModeAutoStitch:
		p, err := plan.BuildStitchPlan(len(job.SourceKeys), len(job.Ranks))
		return p, nil, err
	default:
		if len(job.SourceKeys) != 1 {
			return nil, nil, fmt.Errorf("pre-edited jobs take exactly one source clip, got %d", len(job.SourceKeys))
		}
		if job.EndTime == nil {
			return nil, nil, fmt.Errorf("end time is required for pre-edited jobs")
		}
		p, err := plan.BuildTimedPlan(job.TimestampMarks, *job.EndTime, len(job.Ranks))
		return nil, p, err
	}
}

func (w *Worker) downloadSources(ctx context.Context, job *models.Job, scratch string) ([]string, error) {
	clipPaths := make([]string, len(job.SourceKeys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range job.SourceKeys {
		i, key := i, key
		g.Go(func() error {
			localPath := filepath.Join(scratch, fmt.Sprintf("source_%d.mp4", i))
			if err := w.storage.DownloadToFile(gctx, key, localPath); err != nil {
				return fmt.Errorf("source clip %d: %w", i, err)
			}
			clipPaths[i] = localPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clipPaths, nil
}

// runStitch renders one cumulative overlay per clip, composites each onto
// its clip concurrently, then concatenates the segments in original order.
// The concatenation is a hard barrier behind every processed segment.
func (w *Worker) runStitch(ctx context.Context, job *models.Job, scratch string, clipPaths []string, p *plan.StitchPlan) (string, error) {
	w.setStage(ctx, job, models.JobStatusRendering, 30)

	segmentPaths := make([]string, len(p.Steps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, step := range p.Steps {
		step := step
		g.Go(func() error {
			img, err := w.overlay.RenderOverlay(gctx, job.Title, job.Ranks, step.RanksToShow)
			if err != nil {
				return stageErr(StageRender, fmt.Errorf("clip %d overlay: %w", step.ClipIndex, err))
			}

			overlayPath := filepath.Join(scratch, fmt.Sprintf("overlay_%d.png", step.ClipIndex))
			if err := writePNG(overlayPath, img); err != nil {
				return stageErr(StageRender, err)
			}

			segmentPath := filepath.Join(scratch, fmt.Sprintf("segment_%d.mp4", step.ClipIndex))
			layers := []services.OverlayLayer{{ImagePath: overlayPath}}
			if err := w.ffmpeg.ComposeOverlays(gctx, clipPaths[step.ClipIndex], segmentPath, layers); err != nil {
				return stageErr(StageTranscode, fmt.Errorf("clip %d: %w", step.ClipIndex, err))
			}

			segmentPaths[step.ClipIndex] = segmentPath
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	w.setStage(ctx, job, models.JobStatusConcatenating, 70)
	finalPath := filepath.Join(scratch, "final.mp4")
	if err := w.ffmpeg.Concatenate(ctx, segmentPaths, finalPath); err != nil {
		return "", stageErr(StageTranscode, err)
	}

	return finalPath, nil
}

// runTimed renders the base overlay and one overlay per rank in parallel,
// then hands the whole time-gated composition chain to a single transcoder
// invocation.
func (w *Worker) runTimed(ctx context.Context, job *models.Job, scratch string, clipPath string, p *plan.TimedPlan) (string, error) {
	// The plan was validated against the declared end time; confirm the
	// downloaded clip actually covers it.
	duration, err := w.ffmpeg.GetVideoDuration(ctx, clipPath)
	if err != nil {
		return "", stageErr(StageTranscode, err)
	}
	if *job.EndTime > duration+0.5 {
		return "", stageErr(StageValidate, fmt.Errorf("end time %.2f exceeds clip duration %.2f", *job.EndTime, duration))
	}

	w.setStage(ctx, job, models.JobStatusRendering, 30)

	basePath := filepath.Join(scratch, "overlay_base.png")
	rankPaths := make([]string, len(p.Steps))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		img, err := w.overlay.RenderBase(gctx, job.Title)
		if err != nil {
			return stageErr(StageRender, fmt.Errorf("base overlay: %w", err))
		}
		return stageErr(StageRender, writePNG(basePath, img))
	})

	for i, step := range p.Steps {
		i, step := i, step
		g.Go(func() error {
			img, err := w.overlay.RenderRank(gctx, job.Title, job.Ranks, step.RankIndex)
			if err != nil {
				return stageErr(StageRender, fmt.Errorf("rank %d overlay: %w", step.RankIndex, err))
			}

			path := filepath.Join(scratch, fmt.Sprintf("overlay_rank_%d.png", step.RankIndex))
			if err := writePNG(path, img); err != nil {
				return stageErr(StageRender, err)
			}
			rankPaths[i] = path
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	w.setStage(ctx, job, models.JobStatusCompositing, 60)

	// Base first, then rank layers in mark order: later reveals composite
	// on top of the running result.
	layers := make([]services.OverlayLayer, 0, len(p.Steps)+1)
	base := p.Base
	layers = append(layers, services.OverlayLayer{ImagePath: basePath, Window: &base})
	for i, step := range p.Steps {
		window := step.Window
		layers = append(layers, services.OverlayLayer{ImagePath: rankPaths[i], Window: &window})
	}

	finalPath := filepath.Join(scratch, "final.mp4")
	if err := w.ffmpeg.ComposeOverlays(ctx, clipPath, finalPath, layers); err != nil {
		return "", stageErr(StageTranscode, err)
	}

	return finalPath, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}
