// Package video implements the video rendering pipeline stage.
package video

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "video"
	// StageName is the human-readable name for this stage.
	StageName = "Render Video"
)

// Stage renders the break video over the finished audio. Video is strictly
// additive: any failure here leaves the break audio-only and never fails
// the build.
type Stage struct {
	shared.BaseStage
	video  core.VideoRenderer
	logger *slog.Logger
}

// New creates a new video stage.
func New(video core.VideoRenderer) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		video:     video,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Video)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute renders the break video when a renderer is configured.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	switch {
	case s.video == nil:
		result.Message = "video disabled"
		return result, nil
	case state.Rung >= models.DegradationSting:
		result.Message = "sting break, no video"
		return result, nil
	case state.AudioPath == "":
		result.Message = "no audio, no video"
		return result, nil
	}

	path, err := s.video.Render(ctx, &core.RenderJob{
		BreakID:    state.BreakID,
		Script:     state.Script,
		DialogJSON: state.DialogJSON,
		Host:       state.Host,
		CoHost:     state.CoHost,
		AudioPath:  state.AudioPath,
		Segments:   state.AudioSegments,
		WorkDir:    state.TempDir,
	})
	if err != nil {
		state.AddError(fmt.Errorf("rendering video: %w", err))
		s.log(ctx, slog.LevelWarn, "video render failed, break stays audio-only",
			slog.String("error", err.Error()))
		result.Message = "render failed, audio only"
		return result, nil
	}

	state.VideoPath = path
	result.RecordsProcessed = 1
	result.Message = filepath.Base(path)
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeVideo, core.ProcessingStageRendered, StageID).
			WithFilePath(path).
			WithRecordCount(1))

	s.log(ctx, slog.LevelInfo, "video rendered",
		slog.String("path", path))

	return result, nil
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
