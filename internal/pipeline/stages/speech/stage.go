// Package speech implements the speech synthesis pipeline stage.
package speech

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/provider/speech"
	"github.com/hermesradio/hermes/internal/service"
	"github.com/hermesradio/hermes/internal/visual"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "speech"
	// StageName is the human-readable name for this stage.
	StageName = "Synthesize Speech"
)

// Stage turns the script into break audio. A monologue is one synthesis
// call; a dialog synthesizes per line with each speaker's voice and
// concatenates the segments. When synthesis fails outright the break drops
// to the sting rung, keeping the script for the record.
type Stage struct {
	shared.BaseStage
	speech    core.Synthesizer
	ffmpeg    core.MediaRunner
	fallbacks core.FallbackSource
	logger    *slog.Logger
}

// New creates a new speech stage.
func New(synth core.Synthesizer, ffmpeg core.MediaRunner, fallbacks core.FallbackSource) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		speech:    synth,
		ffmpeg:    ffmpeg,
		fallbacks: fallbacks,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Speech, deps.FFmpeg, deps.Fallbacks)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute synthesizes the break audio.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	if state.Rung >= models.DegradationSting {
		result.Message = "sting break, no synthesis"
		return result, nil
	}

	var (
		path string
		err  error
	)
	if state.DialogJSON != nil {
		path, err = s.synthesizeDialog(ctx, state)
	} else {
		path, err = s.synthesizeMonologue(ctx, state)
	}
	if err != nil {
		state.AddError(fmt.Errorf("synthesizing speech: %w", err))
		s.log(ctx, slog.LevelWarn, "synthesis failed, trying sting",
			slog.String("error", err.Error()))

		sting := s.fallbacks.StingPath(service.StingStationID)
		if sting == "" {
			state.Rung = models.DegradationFailed
			return nil, core.NewBuildFailure(models.FailReasonNoSpeech, err)
		}
		// The script stays on the break row; only the audio is replaced.
		state.StingPath = sting
		state.AudioSegments = nil
		state.Rung = models.DegradationSting
		result.Message = "degraded to sting"
		return result, nil
	}

	state.AudioPath = path
	result.RecordsProcessed = 1 + len(state.AudioSegments)
	result.Message = filepath.Base(path)
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeAudio, core.ProcessingStageSynthesized, StageID).
			WithFilePath(path).
			WithRecordCount(1+len(state.AudioSegments)))

	s.log(ctx, slog.LevelInfo, "speech synthesized",
		slog.String("path", path),
		slog.Int("segments", len(state.AudioSegments)))

	return result, nil
}

// synthesizeMonologue runs the single synthesis call for a one-voice break.
func (s *Stage) synthesizeMonologue(ctx context.Context, state *core.State) (string, error) {
	return s.speech.Synthesize(ctx, &speech.Request{
		Text:     state.Script,
		Host:     state.Host,
		OutputID: state.BreakID.String(),
		WorkDir:  state.TempDir,
		Provider: state.TTSProvider,
	})
}

// synthesizeDialog voices each line with its speaker's host row and joins
// the segments into one MP3. Segment audio is uniform (the normalizer
// output), so the join is a stream copy.
func (s *Stage) synthesizeDialog(ctx context.Context, state *core.State) (string, error) {
	script, err := visual.ParseScript(state.DialogJSON)
	if err != nil {
		return "", fmt.Errorf("parsing dialog: %w", err)
	}

	lines := script.Lines()
	segments := make([]core.AudioSegment, 0, len(lines))
	for i, line := range lines {
		path, err := s.speech.Synthesize(ctx, &speech.Request{
			Text:     line.Text,
			Host:     s.hostFor(state, line.Character),
			OutputID: fmt.Sprintf("%s_seg%03d", state.BreakID, i),
			WorkDir:  state.TempDir,
			Provider: state.TTSProvider,
		})
		if err != nil {
			return "", fmt.Errorf("line %d (%s): %w", i, line.Character, err)
		}
		segments = append(segments, core.AudioSegment{
			Character: line.Character,
			Text:      line.Text,
			Path:      path,
		})
	}

	state.AudioSegments = segments
	return s.concatSegments(ctx, state, segments)
}

// hostFor matches a dialog character to its host row. Unknown characters
// speak with the primary host's voice.
func (s *Stage) hostFor(state *core.State, character string) *models.Host {
	for _, h := range []*models.Host{state.Host, state.CoHost} {
		if h == nil {
			continue
		}
		name := strings.ToLower(h.Character)
		if name == "" {
			name = strings.ToLower(h.Slug)
		}
		if name == character {
			return h
		}
	}
	return state.Host
}

// concatSegments joins the per-line MP3s with a concat demuxer copy.
func (s *Stage) concatSegments(ctx context.Context, state *core.State, segments []core.AudioSegment) (string, error) {
	if s.ffmpeg == nil {
		return "", fmt.Errorf("no media runner for %d segments", len(segments))
	}

	var list strings.Builder
	list.WriteString("ffconcat version 1.0\n")
	for _, seg := range segments {
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(seg.Path, "'", `'\''`))
	}

	listPath := filepath.Join(state.TempDir, "segments.ffconcat")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing concat list: %w", err)
	}

	out := filepath.Join(state.TempDir, state.BreakID.String()+".mp3")
	err := s.ffmpeg.Run(ctx, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		out,
	)
	if err != nil {
		return "", fmt.Errorf("joining %d segments: %w", len(segments), err)
	}
	return out, nil
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
