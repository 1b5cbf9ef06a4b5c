// Package pipeline assembles radio breaks end to end.
//
// The pipeline is organized into several sub-packages:
//   - core: Orchestrator, interfaces, and base types
//   - shared: Utilities shared between stages
//   - stages/*: Individual stage implementations, executed in order:
//     gather, script, validate, speech, video, publish
//
// A Builder fronts the whole thing: it admits or refuses a build, picks the
// host persona, opens the PREPARING row, and runs the stage chain, settling
// the break as FAILED when the chain cannot deliver.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/observability"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/pipeline/stages/gather"
	"github.com/hermesradio/hermes/internal/pipeline/stages/publish"
	"github.com/hermesradio/hermes/internal/pipeline/stages/script"
	"github.com/hermesradio/hermes/internal/pipeline/stages/speech"
	"github.com/hermesradio/hermes/internal/pipeline/stages/validate"
	"github.com/hermesradio/hermes/internal/pipeline/stages/video"
)

// Re-export core types for convenience.
type (
	// Stage is a single step in the pipeline.
	Stage = core.Stage

	// State holds shared data between stages.
	State = core.State

	// Result is the outcome of pipeline execution.
	Result = core.Result

	// StageResult is the outcome of a single stage.
	StageResult = core.StageResult

	// Orchestrator executes stages in sequence.
	Orchestrator = core.Orchestrator

	// OrchestratorFactory creates orchestrators.
	OrchestratorFactory = core.OrchestratorFactory

	// Factory creates orchestrators.
	Factory = core.Factory

	// Dependencies bundles stage dependencies.
	Dependencies = core.Dependencies

	// Artifact represents stage output.
	Artifact = core.Artifact

	// ArtifactType identifies artifact content.
	ArtifactType = core.ArtifactType

	// ProcessingStage indicates processing state.
	ProcessingStage = core.ProcessingStage

	// ProgressReporter allows progress tracking.
	ProgressReporter = core.ProgressReporter

	// StageConstructor creates stages from dependencies.
	StageConstructor = core.StageConstructor

	// RenderJob carries everything the visual pipeline needs for one break.
	RenderJob = core.RenderJob

	// AudioSegment is one synthesized dialog line.
	AudioSegment = core.AudioSegment

	// BuildTracker mirrors in-flight builds for the status API.
	BuildTracker = shared.BuildTracker

	// BuildView is a point-in-time snapshot of one build.
	BuildView = shared.BuildView
)

// Re-export artifact types.
const (
	ArtifactTypeScript = core.ArtifactTypeScript
	ArtifactTypeDialog = core.ArtifactTypeDialog
	ArtifactTypeAudio  = core.ArtifactTypeAudio
	ArtifactTypeVideo  = core.ArtifactTypeVideo
)

// Re-export processing stages.
const (
	ProcessingStageDraft       = core.ProcessingStageDraft
	ProcessingStageValidated   = core.ProcessingStageValidated
	ProcessingStageSynthesized = core.ProcessingStageSynthesized
	ProcessingStageRendered    = core.ProcessingStageRendered
	ProcessingStagePublished   = core.ProcessingStagePublished
)

// Re-export errors.
var (
	ErrAlreadyPreparing     = core.ErrAlreadyPreparing
	ErrCooldown             = core.ErrCooldown
	ErrBuildAlreadyRunning  = core.ErrBuildAlreadyRunning
	ErrStageNotFound        = core.ErrStageNotFound
	ErrInvalidConfiguration = core.ErrInvalidConfiguration
)

// NewState creates a build state around a PREPARING break row.
var NewState = core.NewState

// NewFactory creates a new pipeline factory with the given dependencies.
func NewFactory(deps *Dependencies) *Factory {
	return core.NewFactory(deps)
}

// Stages returns the break assembly stage constructors in execution order.
func Stages() []StageConstructor {
	return []StageConstructor{
		gather.NewConstructor(),
		script.NewConstructor(),
		validate.NewConstructor(),
		speech.NewConstructor(),
		video.NewConstructor(),
		publish.NewConstructor(),
	}
}

// Stage IDs for reference.
const (
	StageIDGather   = gather.StageID
	StageIDScript   = script.StageID
	StageIDValidate = validate.StageID
	StageIDSpeech   = speech.StageID
	StageIDVideo    = video.StageID
	StageIDPublish  = publish.StageID
)

// defaultCooldownSeconds spaces scheduled builds when the setting is absent.
const defaultCooldownSeconds = 120

// Builder runs complete break builds. It owns the admission gate for
// scheduled breaks, persona selection, and the terminal bookkeeping when a
// build errors out. One Builder serves the whole process.
type Builder struct {
	deps    *Dependencies
	factory *Factory
	tracker *BuildTracker
	logger  *slog.Logger
}

// NewBuilder validates the dependency set and wires the stage chain.
func NewBuilder(deps *Dependencies) (*Builder, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	factory := core.NewFactory(deps)
	for _, constructor := range Stages() {
		factory.RegisterStage(constructor)
	}
	return &Builder{
		deps:    deps,
		factory: factory,
		tracker: shared.NewBuildTracker(),
		logger:  observability.WithComponent(deps.Logger, "builder"),
	}, nil
}

// Tracker exposes the in-flight build snapshots for the status API.
func (b *Builder) Tracker() *BuildTracker {
	return b.tracker
}

// BuildScheduled assembles a timer-driven break. It refuses with
// ErrAlreadyPreparing when a scheduled break is mid-build and with
// ErrCooldown when the previous scheduled break was created too recently.
func (b *Builder) BuildScheduled(ctx context.Context) (*Result, error) {
	if err := b.admitScheduled(ctx); err != nil {
		return nil, err
	}
	return b.build(ctx, models.BreakKindScheduled, "")
}

// BuildBreaking assembles a breaking-news break immediately. Breaking
// builds bypass the admission gate and the cooldown, always use a single
// host, and may route speech to a faster TTS provider.
func (b *Builder) BuildBreaking(ctx context.Context, reason, note string) (*Result, error) {
	b.logEvent(ctx, models.EventBreakingTrigger, "breaking break triggered", map[string]any{
		"reason": reason,
		"note":   note,
	})
	return b.build(ctx, models.BreakKindBreaking, note)
}

// admitScheduled enforces the one-at-a-time and cooldown rules for
// scheduled breaks. Refusals are recorded as break_skipped events so gaps
// in the schedule stay explainable.
func (b *Builder) admitScheduled(ctx context.Context) error {
	preparing, err := b.deps.Breaks.CountPreparingNonBreaking(ctx)
	if err != nil {
		return fmt.Errorf("checking preparing breaks: %w", err)
	}
	if preparing > 0 {
		b.logger.InfoContext(ctx, "scheduled break skipped",
			slog.Int64("preparing", preparing))
		b.logEvent(ctx, models.EventBreakSkipped, "scheduled break skipped, one already preparing", nil)
		return ErrAlreadyPreparing
	}

	cooldown, err := b.deps.Settings.Int(ctx, models.SettingCooldownSeconds, defaultCooldownSeconds)
	if err != nil {
		cooldown = defaultCooldownSeconds
	}
	last, err := b.deps.Breaks.GetLastByKind(ctx, models.BreakKindScheduled)
	if err != nil {
		return fmt.Errorf("checking last scheduled break: %w", err)
	}
	if last != nil {
		age := time.Since(last.CreatedAt)
		if age < time.Duration(cooldown)*time.Second {
			b.logger.InfoContext(ctx, "scheduled break skipped",
				slog.Duration("since_last", age),
				slog.Int("cooldown_seconds", cooldown))
			b.logEvent(ctx, models.EventBreakSkipped, "scheduled break skipped, inside cooldown", map[string]any{
				"since_last_seconds": int(age.Seconds()),
				"cooldown_seconds":   cooldown,
			})
			return ErrCooldown
		}
	}
	return nil
}

// build opens the PREPARING row and runs the stage chain. The row exists
// before the first stage runs so operators see the build the moment it
// starts; if the chain errors the row is settled as FAILED here.
func (b *Builder) build(ctx context.Context, kind models.BreakKind, note string) (*Result, error) {
	breaking := kind == models.BreakKindBreaking

	dialog := false
	if !breaking {
		var err error
		dialog, err = b.deps.Settings.Bool(ctx, models.SettingDialogMode, false)
		if err != nil {
			b.logger.WarnContext(ctx, "dialog mode setting unreadable", slog.Any("error", err))
			dialog = false
		}
	}

	var host, coHost *models.Host
	if dialog {
		var err error
		host, coHost, err = b.deps.Hosts.DialogHosts(ctx)
		if err != nil {
			b.logger.WarnContext(ctx, "dialog host pair unavailable, using single host",
				slog.Any("error", err))
			host, coHost = nil, nil
			dialog = false
		}
	}
	if host == nil {
		var err error
		host, err = b.deps.Hosts.NextHost(ctx, breaking)
		if err != nil {
			return nil, fmt.Errorf("picking host: %w", err)
		}
	}

	budget, err := b.deps.Filter.Budget(ctx, breaking)
	if err != nil {
		return nil, fmt.Errorf("reading word budget: %w", err)
	}

	ttsProvider := ""
	if breaking {
		ttsProvider, err = b.deps.Settings.String(ctx, models.SettingTTSBreakingProvider, "")
		if err != nil {
			ttsProvider = ""
		}
	}

	brk := &models.Break{
		Kind:     kind,
		Status:   models.BreakStatusPreparing,
		HostSlug: host.Slug,
	}
	if err := b.deps.Breaks.Create(ctx, brk); err != nil {
		return nil, fmt.Errorf("creating break row: %w", err)
	}

	state := NewState(brk)
	state.Host = host
	state.CoHost = coHost
	state.Breaking = breaking
	state.Note = note
	state.DialogMode = dialog
	state.TTSProvider = ttsProvider
	state.Budget = budget

	b.logger.InfoContext(ctx, "break assembly started",
		slog.String("break_id", brk.ID.String()),
		slog.String("kind", string(kind)),
		slog.String("host", host.Slug),
		slog.Bool("dialog", dialog))
	b.logEvent(ctx, models.EventBreakStarted, "break assembly started", map[string]any{
		"break_id": brk.ID.String(),
		"kind":     string(kind),
		"host":     host.Slug,
		"dialog":   dialog,
	})

	orch := b.factory.Create(state)
	orch.SetProgressReporter(b.tracker)

	result, err := orch.Execute(ctx)
	if err != nil {
		b.failBreak(ctx, state, brk, err)
		return result, err
	}
	return result, nil
}

// failBreak settles a break whose build errored. The row moves to FAILED
// with the failure reason unless a stage already parked it in a terminal
// status. Bookkeeping runs without the build's cancellation so a shutdown
// mid-build still leaves an explained row behind.
func (b *Builder) failBreak(ctx context.Context, state *State, brk *models.Break, cause error) {
	ctx = context.WithoutCancel(ctx)
	reason := core.FailReason(cause)

	brk.DegradationLevel = state.Rung
	if !brk.IsTerminal() {
		if err := brk.MarkFailed(reason); err != nil {
			b.logger.ErrorContext(ctx, "break could not be marked failed",
				slog.String("break_id", brk.ID.String()),
				slog.Any("error", err))
		} else if err := b.deps.Breaks.Update(ctx, brk); err != nil {
			b.logger.ErrorContext(ctx, "failed break row not persisted",
				slog.String("break_id", brk.ID.String()),
				slog.Any("error", err))
		}
	}

	b.logger.ErrorContext(ctx, "break assembly failed",
		slog.String("break_id", brk.ID.String()),
		slog.Int("degradation_level", state.Rung),
		slog.String("reason", reason))
	if err := b.deps.Events.LogLatency(ctx, models.EventBreakFailed, "break failed", map[string]any{
		"break_id":          brk.ID.String(),
		"degradation_level": state.Rung,
		"error":             reason,
	}, state.Duration()); err != nil {
		b.logger.WarnContext(ctx, "event write failed",
			slog.String("event", models.EventBreakFailed),
			slog.Any("error", err))
	}
}

// logEvent records an operational event, downgrading write failures to a
// log line so event persistence never blocks a build decision.
func (b *Builder) logEvent(ctx context.Context, eventType, message string, detail any) {
	if err := b.deps.Events.Log(ctx, eventType, message, detail); err != nil {
		b.logger.WarnContext(ctx, "event write failed",
			slog.String("event", eventType),
			slog.Any("error", err))
	}
}
