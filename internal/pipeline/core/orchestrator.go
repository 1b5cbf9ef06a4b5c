package core

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/storage"
)

// activeBuilds tracks which breaks have builds running.
var (
	activeBuilds   = make(map[models.ULID]bool)
	activeBuildsMu sync.Mutex
)

// Orchestrator executes a sequence of pipeline stages against one break.
type Orchestrator struct {
	stages           []Stage
	state            *State
	sandbox          *storage.Sandbox
	logger           *slog.Logger
	progressReporter ProgressReporter
}

// NewOrchestrator creates a new Orchestrator around a prepared build state.
func NewOrchestrator(state *State, stages []Stage, sandbox *storage.Sandbox, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		stages:  stages,
		state:   state,
		sandbox: sandbox,
		logger:  logger,
	}
}

// SetProgressReporter sets an optional progress reporter.
func (o *Orchestrator) SetProgressReporter(reporter ProgressReporter) {
	o.progressReporter = reporter
}

// Execute runs all stages in sequence.
// Returns a Result with execution details and any errors.
func (o *Orchestrator) Execute(ctx context.Context) (result *Result, err error) {
	result = &Result{
		Success:      false,
		BreakID:      o.state.BreakID,
		StageResults: make(map[string]*StageResult),
	}

	// Prevent duplicate builds for the same break
	if !o.acquireBuild() {
		return result, ErrBuildAlreadyRunning
	}
	defer o.releaseBuild()

	if o.progressReporter != nil {
		defer func() { o.progressReporter.BuildFinished(o.state.BreakID, err) }()
	}

	// Create working directory for intermediate files inside the sandbox
	tempDir, err := o.sandbox.MkdirTemp("build_" + o.state.BreakID.String())
	if err != nil {
		return result, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			o.logger.Warn("failed to remove build directory",
				slog.String("path", tempDir),
				slog.String("error", rmErr.Error()),
			)
		} else {
			o.logger.Debug("removed build directory",
				slog.String("path", tempDir),
			)
		}
	}()

	o.state.TempDir = tempDir

	o.logger.InfoContext(ctx, "starting break assembly",
		slog.String("break_id", o.state.BreakID.String()),
		slog.String("kind", string(o.state.Break.Kind)),
		slog.Bool("dialog", o.state.DialogMode),
		slog.Int("stage_count", len(o.stages)),
	)

	startTime := time.Now()

	// Execute each stage
	for i, stage := range o.stages {
		select {
		case <-ctx.Done():
			result.Errors = append(result.Errors, ctx.Err())
			result.Duration = time.Since(startTime)
			o.cleanupStages(ctx, o.stages[:i+1])
			return result, ctx.Err()
		default:
		}

		stageResult, stageErr := o.executeStage(ctx, i, stage)
		result.StageResults[stage.ID()] = stageResult

		if stageErr != nil {
			err = stageErr
			result.Errors = append(result.Errors, NewStageError(stage.ID(), stage.Name(), stageErr))
			result.Rung = o.state.Rung
			result.Duration = time.Since(startTime)
			o.cleanupStages(ctx, o.stages[:i+1])
			return result, stageErr
		}
	}

	// Populate result
	result.Success = true
	result.Rung = o.state.Rung
	result.AudioPath = o.state.Break.AudioPath
	result.VideoPath = o.state.Break.VideoPath
	result.Pushed = o.state.Break.Status == models.BreakStatusPushed
	result.Duration = time.Since(startTime)
	result.Errors = o.state.Errors

	o.logger.InfoContext(ctx, "break assembly completed",
		slog.String("break_id", o.state.BreakID.String()),
		slog.Int("rung", result.Rung),
		slog.Bool("pushed", result.Pushed),
		slog.Duration("duration", result.Duration),
		slog.Bool("success", result.Success),
	)

	// Cleanup all stages
	o.cleanupStages(ctx, o.stages)

	return result, nil
}

// executeStage runs a single stage and handles logging/progress.
func (o *Orchestrator) executeStage(ctx context.Context, index int, stage Stage) (*StageResult, error) {
	stageStart := time.Now()

	o.logger.InfoContext(ctx, "executing stage",
		slog.Int("stage_num", index+1),
		slog.Int("total_stages", len(o.stages)),
		slog.String("stage_id", stage.ID()),
		slog.String("stage_name", stage.Name()),
	)

	if o.progressReporter != nil {
		o.progressReporter.StageStarted(o.state.BreakID, stage.ID())
	}

	stageResult, err := stage.Execute(ctx, o.state)
	if stageResult == nil {
		stageResult = &StageResult{}
	}
	stageResult.Duration = time.Since(stageStart)

	if err != nil {
		o.logger.ErrorContext(ctx, "stage failed",
			slog.String("stage_id", stage.ID()),
			slog.String("stage_name", stage.Name()),
			slog.String("error", err.Error()),
			slog.Duration("duration", stageResult.Duration),
		)
		return stageResult, err
	}

	// Register artifacts in state
	for _, artifact := range stageResult.Artifacts {
		o.state.AddArtifact(stage.ID(), artifact)
	}

	o.logger.InfoContext(ctx, "stage completed",
		slog.String("stage_id", stage.ID()),
		slog.String("stage_name", stage.Name()),
		slog.Duration("duration", stageResult.Duration),
		slog.Int("records_processed", stageResult.RecordsProcessed),
		slog.String("message", stageResult.Message),
	)

	return stageResult, nil
}

// cleanupStages calls Cleanup on all given stages.
func (o *Orchestrator) cleanupStages(ctx context.Context, stages []Stage) {
	for _, stage := range stages {
		if err := stage.Cleanup(ctx); err != nil {
			o.logger.Warn("stage cleanup failed",
				slog.String("stage_id", stage.ID()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// acquireBuild tries to acquire the build lock for this break.
func (o *Orchestrator) acquireBuild() bool {
	activeBuildsMu.Lock()
	defer activeBuildsMu.Unlock()

	if activeBuilds[o.state.BreakID] {
		return false
	}
	activeBuilds[o.state.BreakID] = true
	return true
}

// releaseBuild releases the build lock for this break.
func (o *Orchestrator) releaseBuild() {
	activeBuildsMu.Lock()
	defer activeBuildsMu.Unlock()
	delete(activeBuilds, o.state.BreakID)
}

// State returns the current build state (for testing).
func (o *Orchestrator) State() *State {
	return o.state
}

// Stages returns the configured stages (for testing).
func (o *Orchestrator) Stages() []Stage {
	return o.stages
}
