// Package script implements the script writing pipeline stage.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/repository"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "script"
	// StageName is the human-readable name for this stage.
	StageName = "Write Script"
)

// dialogDurationMinutes is the spoken length a dialog break targets. The
// writer turns it into a line budget.
const dialogDurationMinutes = 1.0

// Stage turns the gathered material into a spoken script. Dialog builds get
// one attempt and fall back to a monologue; monologue builds get one retry
// and then walk the degradation ladder.
type Stage struct {
	shared.BaseStage
	writer    core.ScriptWriter
	settings  repository.SettingRepository
	fallbacks core.FallbackSource
	logger    *slog.Logger
}

// New creates a new script stage.
func New(writer core.ScriptWriter, settings repository.SettingRepository, fallbacks core.FallbackSource) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		writer:    writer,
		settings:  settings,
		fallbacks: fallbacks,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Writer, deps.Settings, deps.Fallbacks)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute writes the break script.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	if state.DialogMode {
		if err := s.writeDialog(ctx, state); err == nil {
			result.RecordsProcessed = 1
			result.Message = "dialog script"
			result.Artifacts = append(result.Artifacts,
				core.NewArtifact(core.ArtifactTypeDialog, core.ProcessingStageDraft, StageID).WithRecordCount(1))
			return result, nil
		}
		// Dialog failed; writeDialog already downgraded the state, so the
		// monologue path below takes over.
	}

	req := shared.ScriptRequest(ctx, s.settings, state)

	script, err := s.writer.WriteScript(ctx, req)
	if err != nil {
		state.AddError(fmt.Errorf("writing script: %w", err))
		if state.Rung < models.DegradationRetry {
			state.Rung = models.DegradationRetry
		}
		s.log(ctx, slog.LevelWarn, "script write failed, retrying",
			slog.String("error", err.Error()))
		script, err = s.writer.WriteScript(ctx, req)
	}
	if err != nil {
		state.AddError(fmt.Errorf("writing script (retry): %w", err))
		s.log(ctx, slog.LevelWarn, "script retry failed, degrading",
			slog.String("error", err.Error()))
		if derr := shared.Degrade(ctx, s.fallbacks, state, models.FailReasonExhausted, err); derr != nil {
			return nil, derr
		}
		result.Message = fmt.Sprintf("degraded to rung %d", state.Rung)
		s.log(ctx, slog.LevelInfo, "script degraded",
			slog.Int("rung", state.Rung))
		return result, nil
	}

	state.Script = script
	result.RecordsProcessed = 1
	result.Message = "monologue script"
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeScript, core.ProcessingStageDraft, StageID).WithRecordCount(1))

	s.log(ctx, slog.LevelInfo, "script written",
		slog.Int("words", len(strings.Fields(script))),
		slog.Int("rung", state.Rung))

	return result, nil
}

// writeDialog attempts the two-host exchange. On failure the build drops to
// monologue mode at the retry rung.
func (s *Stage) writeDialog(ctx context.Context, state *core.State) error {
	characters, prompts := shared.DialogCast(state.Host, state.CoHost)

	raw, err := s.writer.WriteDialog(ctx, &llm.DialogRequest{
		Characters:      characters,
		Prompts:         prompts,
		Topic:           dialogTopic(state),
		Weather:         state.Weather,
		Stories:         state.Stories,
		Quote:           state.Quote,
		Tracks:          state.Tracks,
		DurationMinutes: dialogDurationMinutes,
	})
	if err != nil {
		state.AddError(fmt.Errorf("writing dialog: %w", err))
		state.DialogMode = false
		if state.Rung < models.DegradationRetry {
			state.Rung = models.DegradationRetry
		}
		s.log(ctx, slog.LevelWarn, "dialog write failed, falling back to monologue",
			slog.String("error", err.Error()))
		return err
	}

	state.DialogJSON = raw
	s.log(ctx, slog.LevelInfo, "dialog written",
		slog.Int("bytes", len(raw)),
		slog.Any("characters", characters))
	return nil
}

// dialogTopic picks the conversation anchor: the operator note when present,
// else the lead story.
func dialogTopic(state *core.State) string {
	if state.Note != "" {
		return state.Note
	}
	if len(state.Stories) > 0 {
		return state.Stories[0].Title
	}
	return "the day so far on the station"
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
