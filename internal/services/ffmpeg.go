package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/rankforge/rankreel/internal/plan"
)

// maxDiagLen bounds the ffmpeg stderr captured into failure reports.
const maxDiagLen = 2000

// TranscodeError carries the truncated diagnostic stream of a failed ffmpeg
// invocation alongside the underlying exit error.
type TranscodeError struct {
	Op   string
	Diag string
	Err  error
}

func (e *TranscodeError) Error() string {
	if e.Diag == "" {
		return fmt.Sprintf("ffmpeg %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ffmpeg %s failed: %v: %s", e.Op, e.Err, e.Diag)
}

func (e *TranscodeError) Unwrap() error {
	return e.Err
}

// OverlayLayer is one raster image composited onto the running result,
// optionally gated by a visibility window. A nil window means the layer is
// visible for the clip's full duration.
type OverlayLayer struct {
	ImagePath string
	Window    *plan.Window
}

// FFmpegService is the external-transcoder adapter. Composition chains are
// built as structured ffmpeg-go filter graphs; user text never reaches a
// command line — it only ever arrives as pre-rendered raster overlays.
type FFmpegService struct {
	tempDir string
	width   int
	height  int
}

func NewFFmpegService(tempDir string, width, height int) (*FFmpegService, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &FFmpegService{
		tempDir: tempDir,
		width:   width,
		height:  height,
	}, nil
}

// ComposeOverlays scales and crops the input clip to the canvas size, then
// composites each overlay layer on top of the accumulated result in order.
// The chain is strictly linear, so later layers visually sit above earlier
// ones and a single invocation performs the entire composite.
func (s *FFmpegService) ComposeOverlays(ctx context.Context, inputPath, outputPath string, layers []OverlayLayer) error {
	input := ffmpeg.Input(inputPath)

	canvas := fmt.Sprintf("%d:%d", s.width, s.height)
	video := input.Video().
		Filter("scale", ffmpeg.Args{canvas}, ffmpeg.KwArgs{"force_original_aspect_ratio": "increase"}).
		Filter("crop", ffmpeg.Args{canvas})

	for _, layer := range layers {
		overlay := ffmpeg.Input(layer.ImagePath)
		kwargs := ffmpeg.KwArgs{"x": 0, "y": 0}
		if layer.Window != nil {
			kwargs["enable"] = fmt.Sprintf("between(t,%.3f,%.3f)", layer.Window.Start, layer.Window.End)
		}
		video = ffmpeg.Filter([]*ffmpeg.Stream{video, overlay}, "overlay", ffmpeg.Args{}, kwargs)
	}

	outputKwargs := ffmpeg.KwArgs{
		"c:v":     "libx264",
		"pix_fmt": "yuv420p",
	}

	var out *ffmpeg.Stream
	if s.hasAudioStream(inputPath) {
		outputKwargs["c:a"] = "aac"
		outputKwargs["b:a"] = "192k"
		out = ffmpeg.Output([]*ffmpeg.Stream{video, input.Audio()}, outputPath, outputKwargs)
	} else {
		out = video.Output(outputPath, outputKwargs)
	}

	log.Printf("[FFmpeg] Compositing %d overlay layer(s) onto %s", len(layers), filepath.Base(inputPath))
	return s.run(ctx, "compose", out)
}

// Concatenate joins same-codec segments in order using the concat demuxer,
// copying streams without re-encoding.
func (s *FFmpegService) Concatenate(ctx context.Context, clipPaths []string, outputPath string) error {
	if len(clipPaths) == 0 {
		return fmt.Errorf("no clips to concatenate")
	}

	listPath := filepath.Join(s.tempDir, fmt.Sprintf("concat_%s.txt", filepath.Base(outputPath)))
	f, err := os.Create(listPath)
	if err != nil {
		return fmt.Errorf("failed to create concat list: %w", err)
	}

	for _, path := range clipPaths {
		// FFmpeg concat demuxer format
		fmt.Fprintf(f, "file '%s'\n", path)
	}
	f.Close()
	defer os.Remove(listPath)

	out := ffmpeg.Input(listPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outputPath, ffmpeg.KwArgs{"c": "copy"})

	log.Printf("[FFmpeg] Concatenating %d segment(s)", len(clipPaths))
	return s.run(ctx, "concat", out)
}

// ExtractThumbnail grabs a single frame from the video at the given offset.
func (s *FFmpegService) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, atSeconds float64) error {
	out := ffmpeg.Input(videoPath, ffmpeg.KwArgs{"ss": fmt.Sprintf("%.2f", atSeconds)}).
		Output(outputPath, ffmpeg.KwArgs{"vframes": 1, "q:v": 2})

	return s.run(ctx, "thumbnail", out)
}

// GetVideoDuration returns the duration of a video file in seconds via ffprobe.
func (s *FFmpegService) GetVideoDuration(ctx context.Context, videoPath string) (float64, error) {
	probe, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return 0, errors.Wrapf(err, "ffprobe failed for %s", videoPath)
	}

	var data struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return 0, errors.WithStack(err)
	}

	duration, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse duration")
	}

	return duration, nil
}

// hasAudioStream probes the input for an audio stream; clips without one are
// composited video-only.
func (s *FFmpegService) hasAudioStream(videoPath string) bool {
	probe, err := ffmpeg.Probe(videoPath)
	if err != nil {
		return false
	}

	var data struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(probe), &data); err != nil {
		return false
	}

	for _, stream := range data.Streams {
		if stream.CodecType == "audio" {
			return true
		}
	}
	return false
}

// run compiles the stream graph and executes it under the caller's context,
// capturing stderr so failures surface truncated diagnostics.
func (s *FFmpegService) run(ctx context.Context, op string, stream *ffmpeg.Stream) error {
	compiled := stream.OverWriteOutput().Compile()

	var diag bytes.Buffer
	cmd := exec.CommandContext(ctx, compiled.Args[0], compiled.Args[1:]...)
	cmd.Stderr = &diag

	if err := cmd.Run(); err != nil {
		return &TranscodeError{Op: op, Diag: TruncateDiag(diag.String()), Err: err}
	}

	return nil
}

// TruncateDiag keeps the tail of the diagnostic stream, where ffmpeg prints
// the actual failure, bounded to maxDiagLen characters.
func TruncateDiag(diag string) string {
	if len(diag) <= maxDiagLen {
		return diag
	}
	return "..." + diag[len(diag)-maxDiagLen:]
}
