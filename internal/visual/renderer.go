package visual

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/hermesradio/hermes/internal/ffmpeg"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline/core"
)

// Renderer is the video pipeline entry point: script in, MP4 out. It
// bridges monologue breaks into single-line scripts, plans shots with the
// director, and drives the compositor.
type Renderer struct {
	compositor *Compositor
	director   *Director
	prober     *ffmpeg.Prober
	assetsDir  string
	logger     *slog.Logger
}

// NewRenderer wires a renderer over the shared ffmpeg runner and prober.
func NewRenderer(runner *ffmpeg.Runner, prober *ffmpeg.Prober, assetsDir string, width, height, fps int, rng *rand.Rand, logger *slog.Logger) *Renderer {
	logger = observability.WithComponent(logger, "visual")
	return &Renderer{
		compositor: NewCompositor(runner, prober, width, height, fps, logger),
		director:   NewDirector(rng),
		prober:     prober,
		assetsDir:  assetsDir,
		logger:     logger,
	}
}

// Render produces the break MP4 inside job.WorkDir and returns its path.
func (r *Renderer) Render(ctx context.Context, job *core.RenderJob) (string, error) {
	start := time.Now()

	script, err := r.buildScript(ctx, job)
	if err != nil {
		return "", err
	}

	lib, err := OpenLibrary(r.assetsDir, script.Characters)
	if err != nil {
		return "", fmt.Errorf("loading assets: %w", err)
	}

	edl := r.director.Plan(script)
	if len(edl.Segments) == 0 {
		return "", fmt.Errorf("empty edit plan")
	}

	segPaths := make([]string, 0, len(edl.Segments))
	for i := range edl.Segments {
		path, err := r.compositor.RenderSegment(ctx, lib, &edl.Segments[i], job.WorkDir)
		if err != nil {
			return "", fmt.Errorf("rendering segment %d: %w", edl.Segments[i].ID, err)
		}
		segPaths = append(segPaths, path)
	}

	output := filepath.Join(job.WorkDir, job.BreakID.String()+".mp4")
	if err := r.compositor.Concatenate(ctx, segPaths, edl.Transitions(), job.WorkDir, output); err != nil {
		return "", fmt.Errorf("assembling final cut: %w", err)
	}

	r.logger.InfoContext(ctx, "break video rendered",
		slog.String("break_id", job.BreakID.String()),
		slog.Int("segments", len(edl.Segments)),
		slog.Int("planned_ms", edl.TotalDurationMs()),
		slog.Duration("took", time.Since(start)))

	return output, nil
}

// buildScript turns the job into a timed script: dialog JSON with per-line
// audio, or a monologue bridged into a single-scene script.
func (r *Renderer) buildScript(ctx context.Context, job *core.RenderJob) (*Script, error) {
	if len(job.DialogJSON) > 0 {
		return r.dialogScript(ctx, job)
	}
	return r.monologueScript(ctx, job)
}

// dialogScript parses the dialog and times each line against its
// synthesized segment, matched in air order.
func (r *Renderer) dialogScript(ctx context.Context, job *core.RenderJob) (*Script, error) {
	script, err := ParseScript(job.DialogJSON)
	if err != nil {
		return nil, err
	}

	idx := 0
	for si := range script.Scenes {
		lines := script.Scenes[si].Lines
		for li := range lines {
			if idx >= len(job.Segments) {
				return nil, fmt.Errorf("dialog has %d lines but only %d audio segments", len(script.Lines()), len(job.Segments))
			}
			seg := job.Segments[idx]
			durationMs, err := r.probeDurationMs(ctx, seg.Path)
			if err != nil {
				return nil, err
			}
			lines[li].AudioPath = seg.Path
			lines[li].DurationMs = durationMs
			idx++
		}
	}
	return script, nil
}

// monologueScript wraps a plain script into a one-line scene voiced by the
// host's character rig.
func (r *Renderer) monologueScript(ctx context.Context, job *core.RenderJob) (*Script, error) {
	if job.AudioPath == "" {
		return nil, fmt.Errorf("monologue render needs audio")
	}

	durationMs, err := r.probeDurationMs(ctx, job.AudioPath)
	if err != nil {
		return nil, err
	}

	script := FromMonologue(job.Host, job.Script, durationMs)
	script.Title = job.BreakID.String()
	script.Scenes[0].Lines[0].AudioPath = job.AudioPath
	return script, nil
}

func (r *Renderer) probeDurationMs(ctx context.Context, path string) (int, error) {
	probe, err := r.prober.Probe(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", path, err)
	}
	ms := int(probe.Duration().Milliseconds())
	if ms <= 0 {
		return 0, fmt.Errorf("no duration for %s", path)
	}
	return ms, nil
}

// Ensure Renderer satisfies the pipeline contract.
var _ core.VideoRenderer = (*Renderer)(nil)
