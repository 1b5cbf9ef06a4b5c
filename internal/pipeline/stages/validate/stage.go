// Package validate implements the content validation pipeline stage.
package validate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
	"github.com/hermesradio/hermes/internal/visual"
)

const (
	// StageID is the unique identifier for this stage.
	StageID = "validate"
	// StageName is the human-readable name for this stage.
	StageName = "Validate Content"
)

// Stage runs the content filter over generated text. A rejected monologue
// gets one corrective rewrite; a rejected dialog is discarded whole and
// replaced by a fresh monologue. Only LM output is checked: templates are
// operator curated and stings carry no words.
type Stage struct {
	shared.BaseStage
	filter    core.Validator
	writer    core.ScriptWriter
	settings  repository.SettingRepository
	fallbacks core.FallbackSource
	logger    *slog.Logger
}

// New creates a new validate stage.
func New(filter core.Validator, writer core.ScriptWriter, settings repository.SettingRepository, fallbacks core.FallbackSource) *Stage {
	return &Stage{
		BaseStage: shared.NewBaseStage(StageID, StageName),
		filter:    filter,
		writer:    writer,
		settings:  settings,
		fallbacks: fallbacks,
	}
}

// NewConstructor returns a stage constructor for use with the factory.
func NewConstructor() core.StageConstructor {
	return func(deps *core.Dependencies) core.Stage {
		s := New(deps.Filter, deps.Writer, deps.Settings, deps.Fallbacks)
		if deps.Logger != nil {
			s.logger = deps.Logger.With("stage", StageID)
		}
		return s
	}
}

// Execute validates the break text against the content rules.
func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	if state.Rung >= models.DegradationTemplate {
		result.Message = "skipped, no generated text"
		return result, nil
	}

	if state.DialogJSON != nil {
		if err := s.validateDialog(ctx, state); err != nil {
			return nil, err
		}
		if state.DialogJSON != nil {
			result.RecordsProcessed = 1
			result.Message = "dialog passed"
			result.Artifacts = append(result.Artifacts,
				core.NewArtifact(core.ArtifactTypeDialog, core.ProcessingStageValidated, StageID).WithRecordCount(1))
			return result, nil
		}
		// The dialog was discarded. Its replacement is either a fresh
		// monologue, checked below like any other, or a fallback rung
		// that skips checking entirely.
		if state.Rung >= models.DegradationTemplate {
			result.Message = fmt.Sprintf("dialog rejected, degraded to rung %d", state.Rung)
			return result, nil
		}
	}

	verdict, err := s.filter.Validate(ctx, state.Script, state.Breaking)
	if err != nil {
		return nil, fmt.Errorf("validating script: %w", err)
	}
	if !verdict.OK {
		verdict = s.rewriteOnce(ctx, state, verdict)
	}
	if !verdict.OK {
		reason := "filter: " + verdict.Reason()
		s.log(ctx, slog.LevelWarn, "script rejected, degrading",
			slog.String("reasons", verdict.Reason()))
		// The rejected text must not reach synthesis or the database.
		state.Script = ""
		if derr := shared.Degrade(ctx, s.fallbacks, state, reason, errors.New(verdict.Reason())); derr != nil {
			return nil, derr
		}
		result.Message = fmt.Sprintf("rejected, degraded to rung %d", state.Rung)
		return result, nil
	}

	result.RecordsProcessed = 1
	result.Message = "script passed"
	result.Artifacts = append(result.Artifacts,
		core.NewArtifact(core.ArtifactTypeScript, core.ProcessingStageValidated, StageID).WithRecordCount(1))

	s.log(ctx, slog.LevelInfo, "content validated",
		slog.Int("rung", state.Rung))

	return result, nil
}

// validateDialog checks the joined dialog lines against the phrase rules.
// Dialog has no word budget; its length is bounded in lines by the writer.
// A tainted or unparseable dialog is dropped whole and a fresh monologue
// written in its place.
func (s *Stage) validateDialog(ctx context.Context, state *core.State) error {
	script, perr := visual.ParseScript(state.DialogJSON)
	if perr == nil {
		lines := script.Lines()
		texts := make([]string, 0, len(lines))
		for _, l := range lines {
			texts = append(texts, l.Text)
		}
		verdict, err := s.filter.CheckPhrases(ctx, strings.Join(texts, " "), state.Breaking)
		if err != nil {
			return fmt.Errorf("checking dialog: %w", err)
		}
		if verdict.OK {
			return nil
		}
		state.AddError(fmt.Errorf("dialog rejected: %s", verdict.Reason()))
		s.log(ctx, slog.LevelWarn, "dialog rejected, replacing with monologue",
			slog.String("reasons", verdict.Reason()))
	} else {
		state.AddError(fmt.Errorf("parsing dialog: %w", perr))
		s.log(ctx, slog.LevelWarn, "dialog unparseable, replacing with monologue",
			slog.String("error", perr.Error()))
	}

	state.DialogJSON = nil
	state.DialogMode = false
	if state.Rung < models.DegradationRetry {
		state.Rung = models.DegradationRetry
	}

	fresh, err := s.writer.WriteScript(ctx, shared.ScriptRequest(ctx, s.settings, state))
	if err != nil {
		state.AddError(fmt.Errorf("writing replacement script: %w", err))
		state.Script = ""
		return shared.Degrade(ctx, s.fallbacks, state, models.FailReasonExhausted, err)
	}
	state.Script = fresh
	return nil
}

// rewriteOnce asks the writer to correct a rejected script and re-checks
// the result. The returned verdict is the one the caller should act on.
func (s *Stage) rewriteOnce(ctx context.Context, state *core.State, verdict *service.Verdict) *service.Verdict {
	state.AddError(fmt.Errorf("script rejected: %s", verdict.Reason()))
	if state.Rung < models.DegradationRetry {
		state.Rung = models.DegradationRetry
	}
	s.log(ctx, slog.LevelWarn, "script rejected, rewriting",
		slog.String("reasons", verdict.Reason()))

	req := shared.ScriptRequest(ctx, s.settings, state)
	rewritten, err := s.writer.RewriteScript(ctx, req, state.Script, verdict.Reasons)
	if err != nil {
		state.AddError(fmt.Errorf("rewriting script: %w", err))
		return verdict
	}

	again, err := s.filter.Validate(ctx, rewritten, state.Breaking)
	if err != nil {
		state.AddError(fmt.Errorf("validating rewrite: %w", err))
		return verdict
	}
	if again.OK {
		state.Script = rewritten
	}
	return again
}

// log logs a message if the logger is set.
func (s *Stage) log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Log(ctx, level, msg, attrs...)
	}
}

// Ensure Stage implements core.Stage.
var _ core.Stage = (*Stage)(nil)
