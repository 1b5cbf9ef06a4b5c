package visual

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/hermesradio/hermes/internal/ffmpeg"
)

// Compositor renders EDL segments to MP4 and assembles the final cut. The
// heavy lifting is two still frames per segment (idle and talking mouths)
// alternated by the concat demuxer against the lip-sync mask; ffmpeg does
// all encoding.
type Compositor struct {
	runner   *ffmpeg.Runner
	prober   *ffmpeg.Prober
	picker   *ffmpeg.EncoderPicker
	analyzer *Analyzer
	lower    *LowerThird

	width  int
	height int
	fps    int

	logger *slog.Logger
}

// NewCompositor creates a compositor rendering at the given frame geometry.
func NewCompositor(runner *ffmpeg.Runner, prober *ffmpeg.Prober, width, height, fps int, logger *slog.Logger) *Compositor {
	return &Compositor{
		runner:   runner,
		prober:   prober,
		picker:   ffmpeg.NewEncoderPicker(runner),
		analyzer: NewAnalyzer(runner, fps),
		lower:    NewLowerThird(),
		width:    width,
		height:   height,
		fps:      fps,
		logger:   logger,
	}
}

// RenderSegment renders one EDL segment into workDir and returns the MP4
// path. Speaking segments get lip-synced frame alternation; silent ones a
// single still with a generated silent track.
func (c *Compositor) RenderSegment(ctx context.Context, lib *Library, seg *Segment, workDir string) (string, error) {
	segDir := filepath.Join(workDir, fmt.Sprintf("seg_%03d", seg.ID))
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return "", fmt.Errorf("segment dir: %w", err)
	}

	output := filepath.Join(segDir, "segment.mp4")
	encoderArgs := ffmpeg.EncoderArgs(c.picker.Pick(ctx))

	if seg.Silent() {
		if err := c.renderSilent(ctx, lib, seg, segDir, encoderArgs, output); err != nil {
			return "", err
		}
		return output, nil
	}
	if err := c.renderSpeaking(ctx, lib, seg, segDir, encoderArgs, output); err != nil {
		return "", err
	}
	return output, nil
}

// renderSpeaking composes idle and talking stills, derives the lip-sync
// mask from the line audio, and muxes mask-driven frame runs with the
// audio track.
func (c *Compositor) renderSpeaking(ctx context.Context, lib *Library, seg *Segment, segDir string, encoderArgs []string, output string) error {
	speakerLabel := ""
	if char := lib.Character(seg.Speaker); char != nil {
		speakerLabel = char.Label
	}

	idlePNG := filepath.Join(segDir, "frame_idle.png")
	talkingPNG := filepath.Join(segDir, "frame_talking.png")
	if err := c.composeFrame(lib, seg, false, speakerLabel, idlePNG); err != nil {
		return err
	}
	if err := c.composeFrame(lib, seg, true, speakerLabel, talkingPNG); err != nil {
		return err
	}

	mask, err := c.analyzer.Mask(ctx, seg.AudioPath)
	if err != nil || len(mask) == 0 {
		// A failed analysis degrades to an always-open mouth rather than
		// a frozen face.
		if err != nil && c.logger != nil {
			c.logger.WarnContext(ctx, "lip-sync analysis failed, rendering all-talking",
				slog.Int("segment", seg.ID),
				slog.Any("error", err))
		}
		frames := seg.DurationMs * c.fps / 1000
		if frames < 1 {
			frames = 1
		}
		mask = make([]bool, frames)
		for i := range mask {
			mask[i] = true
		}
	}

	concatPath := filepath.Join(segDir, "concat.txt")
	if err := writeConcatScript(concatPath, runLengthEncode(mask), idlePNG, talkingPNG, c.fps); err != nil {
		return err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "warning",
		"-f", "concat", "-safe", "0", "-i", concatPath,
		"-i", seg.AudioPath,
		"-r", fmt.Sprint(c.fps),
	}
	args = append(args, encoderArgs...)
	args = append(args,
		"-c:a", "aac", "-b:a", "128k", "-ar", "44100", "-ac", "2",
		"-shortest",
		"-movflags", "+faststart",
		output,
	)
	return c.runner.Run(ctx, args...)
}

// renderSilent loops one still for the segment duration over a generated
// silent stereo track, so every segment carries an audio stream for the
// final concat.
func (c *Compositor) renderSilent(ctx context.Context, lib *Library, seg *Segment, segDir string, encoderArgs []string, output string) error {
	framePNG := filepath.Join(segDir, "frame.png")
	if err := c.composeFrame(lib, seg, false, "", framePNG); err != nil {
		return err
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "warning",
		"-loop", "1", "-i", framePNG,
		"-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo",
		"-t", fmt.Sprintf("%.3f", float64(seg.DurationMs)/1000),
		"-r", fmt.Sprint(c.fps),
	}
	args = append(args, encoderArgs...)
	args = append(args,
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		output,
	)
	return c.runner.Run(ctx, args...)
}

// composeFrame paints one still: scaled background, each visible character
// at its shot position with the right emotion and mouth state, then the
// lower third for speaking segments.
func (c *Compositor) composeFrame(lib *Library, seg *Segment, talking bool, speakerLabel, output string) error {
	frame := image.NewRGBA(image.Rect(0, 0, c.width, c.height))

	bg, err := lib.Image(lib.Background(seg.Background))
	if err != nil {
		return err
	}
	draw.CatmullRom.Scale(frame, frame.Bounds(), bg, bg.Bounds(), draw.Src, nil)

	for _, id := range seg.Characters {
		char := lib.Character(id)
		if char == nil {
			return fmt.Errorf("character %q not in asset library", id)
		}
		emotion := seg.Emotions[id]
		mouthOpen := talking && id == seg.Speaker
		art, err := lib.Image(char.Art(emotion, mouthOpen))
		if err != nil {
			return err
		}
		c.pasteCharacter(frame, art, char.PositionFor(seg.Shot))
	}

	if speakerLabel != "" || seg.DialogText != "" {
		c.lower.Draw(frame, speakerLabel, seg.DialogText)
	}

	return writePNG(output, frame)
}

// pasteCharacter scales and composites character art with a bottom-center
// anchor: x is the horizontal center, y the feet line.
func (c *Compositor) pasteCharacter(frame *image.RGBA, art image.Image, pos Position) {
	w := int(float64(art.Bounds().Dx()) * pos.Scale)
	h := int(float64(art.Bounds().Dy()) * pos.Scale)
	if w < 1 || h < 1 {
		return
	}
	x := int(pos.X*float64(c.width)) - w/2
	y := int(pos.Y*float64(c.height)) - h
	dst := image.Rect(x, y, x+w, y+h)
	draw.CatmullRom.Scale(frame, dst, art, art.Bounds(), draw.Over, nil)
}

// writeConcatScript emits the ffconcat v1.0 demuxer script alternating the
// two stills along the mask runs. The demuxer wants the final file
// repeated without a duration.
func writeConcatScript(path string, runs []maskRun, idlePNG, talkingPNG string, fps int) error {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")

	last := idlePNG
	for _, run := range runs {
		file := idlePNG
		if run.talking {
			file = talkingPNG
		}
		fmt.Fprintf(&b, "file '%s'\n", file)
		fmt.Fprintf(&b, "duration %.6f\n", float64(run.frames)/float64(fps))
		last = file
	}
	fmt.Fprintf(&b, "file '%s'\n", last)

	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// Concatenate joins rendered segments into the final MP4. All-cut edits
// stream-copy through the concat demuxer; anything with a dissolve or fade
// re-encodes once through an xfade/acrossfade graph.
func (c *Compositor) Concatenate(ctx context.Context, segPaths []string, transitions []Transition, workDir, output string) error {
	switch {
	case len(segPaths) == 0:
		return fmt.Errorf("no segments to concatenate")
	case len(segPaths) == 1:
		return c.runner.Run(ctx,
			"-y", "-hide_banner", "-loglevel", "warning",
			"-i", segPaths[0],
			"-c", "copy",
			"-movflags", "+faststart",
			output,
		)
	}

	allCuts := true
	for _, t := range transitions {
		if t != TransitionCut {
			allCuts = false
			break
		}
	}
	if allCuts {
		return c.concatCopy(ctx, segPaths, workDir, output)
	}
	return c.concatCrossfade(ctx, segPaths, transitions, output)
}

// concatCopy joins segments without re-encoding.
func (c *Compositor) concatCopy(ctx context.Context, segPaths []string, workDir, output string) error {
	var b strings.Builder
	for _, p := range segPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	listPath := filepath.Join(workDir, "final_concat.txt")
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("concat list: %w", err)
	}

	return c.runner.Run(ctx,
		"-y", "-hide_banner", "-loglevel", "warning",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy",
		"-movflags", "+faststart",
		output,
	)
}

// concatCrossfade joins segments through an xfade graph. Cut pairs use a
// one-frame fade so the whole edit can ride a single filter chain.
func (c *Compositor) concatCrossfade(ctx context.Context, segPaths []string, transitions []Transition, output string) error {
	durations := make([]float64, len(segPaths))
	for i, p := range segPaths {
		probe, err := c.prober.Probe(ctx, p)
		if err != nil {
			return fmt.Errorf("probing segment %d: %w", i, err)
		}
		durations[i] = probe.Duration().Seconds()
	}

	filter := buildCrossfadeFilter(durations, transitions, c.fps)

	args := []string{"-y", "-hide_banner", "-loglevel", "warning"}
	for _, p := range segPaths {
		args = append(args, "-i", p)
	}
	args = append(args,
		"-filter_complex", filter,
		"-map", "[vout]", "-map", "[aout]",
		"-r", fmt.Sprint(c.fps),
	)
	args = append(args, ffmpeg.EncoderArgs(c.picker.Pick(ctx))...)
	args = append(args,
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "+faststart",
		output,
	)
	return c.runner.Run(ctx, args...)
}

// buildCrossfadeFilter composes the xfade video chain and the symmetric
// acrossfade audio chain for n segments. Each join's offset is the running
// combined duration minus its fade; the combined duration shrinks by one
// fade per join.
func buildCrossfadeFilter(durations []float64, transitions []Transition, fps int) string {
	n := len(durations)
	var vFilters, aFilters []string

	combined := durations[0]
	for i := 0; i < n-1; i++ {
		t := TransitionCut
		if i < len(transitions) {
			t = transitions[i]
		}
		fade := float64(t.DurationMs(fps)) / 1000

		offset := combined - fade
		if offset < 0.01 {
			offset = 0.01
		}

		vIn := fmt.Sprintf("[vf%d][%d:v]", i-1, i+1)
		aIn := fmt.Sprintf("[af%d][%d:a]", i-1, i+1)
		if i == 0 {
			vIn = "[0:v][1:v]"
			aIn = "[0:a][1:a]"
		}
		vOut := fmt.Sprintf("[vf%d]", i)
		aOut := fmt.Sprintf("[af%d]", i)
		if i == n-2 {
			vOut = "[vout]"
			aOut = "[aout]"
		}

		vFilters = append(vFilters, fmt.Sprintf(
			"%sxfade=transition=fade:duration=%.3f:offset=%.3f%s", vIn, fade, offset, vOut))
		aFilters = append(aFilters, fmt.Sprintf(
			"%sacrossfade=d=%.3f:c1=tri:c2=tri%s", aIn, fade, aOut))

		combined = combined + durations[i+1] - fade
	}

	return strings.Join(append(vFilters, aFilters...), ";")
}

// writePNG saves a composed frame.
func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating frame: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	return nil
}
