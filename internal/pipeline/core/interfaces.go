// Package core provides the break assembly framework: the stage contract,
// the state shared across stages, and the orchestrator that runs them.
package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/provider/market"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/service"
)

// Stage represents a single step in break assembly.
// Each stage reads what earlier stages left in the state and records its
// own output there.
type Stage interface {
	// ID returns a unique identifier for the stage (e.g., "gather").
	ID() string

	// Name returns a human-readable name for the stage (e.g., "Gather Material").
	Name() string

	// Execute performs the stage's work against the shared state.
	Execute(ctx context.Context, state *State) (*StageResult, error)

	// Cleanup performs any necessary cleanup after execution.
	// Called regardless of success or failure.
	Cleanup(ctx context.Context) error
}

// ProgressReporter observes build progress. The status API uses it to show
// where a PREPARING break currently sits.
type ProgressReporter interface {
	// StageStarted reports that a stage began executing.
	StageStarted(breakID models.ULID, stageID string)

	// BuildFinished reports that the whole build ended, err non-nil on
	// failure.
	BuildFinished(breakID models.ULID, err error)
}

// State holds all data shared between stages while one break is assembled.
type State struct {
	// BreakID is the ID of the break being assembled.
	BreakID models.ULID

	// Break is the PREPARING row. Stages update its fields; the publish
	// stage persists the final state.
	Break *models.Break

	// Host voices the break. CoHost is the second voice in dialog mode,
	// nil otherwise.
	Host   *models.Host
	CoHost *models.Host

	// Breaking marks an urgent build: breaking host, tighter budget, and
	// urgent phrasing.
	Breaking bool

	// Note is the operator's context line on a breaking build.
	Note string

	// DialogMode switches the script stage to the two-host writer.
	DialogMode bool

	// TTSProvider forces a speech provider for this build when non-empty.
	TTSProvider string

	// Budget is the word window the content filter enforces.
	Budget service.WordBudget

	// Gathered material. Provider failures leave these short or empty;
	// later stages degrade rather than fail.
	Weather     []*weather.Observation
	Stories     []llm.Story
	HeadlineIDs []models.ULID
	Quote       *market.Quote
	Tracks      []llm.Track

	// Script is the monologue text, or the template fallback text.
	Script string

	// DialogJSON is the structured two-host script in dialog mode.
	DialogJSON json.RawMessage

	// Rung is the degradation rung the build has settled on so far.
	Rung int

	// StingPath is set once the sting rung fires. Remaining stages skip
	// their work and publish pushes the sting as the break audio.
	StingPath string

	// AudioPath is the synthesized audio inside TempDir.
	AudioPath string

	// AudioSegments holds per-line dialog audio in air order, kept so the
	// video compositor can time shots against real line durations.
	AudioSegments []AudioSegment

	// VideoPath is the rendered MP4 inside TempDir, when video ran.
	VideoPath string

	// TempDir is the per-build work directory inside the media sandbox.
	TempDir string

	// StartTime records when the build began.
	StartTime time.Time

	// Errors collects non-fatal errors during execution.
	Errors []error

	// Artifacts holds output artifacts from each stage.
	Artifacts map[string][]Artifact

	// Metadata stores arbitrary stage-specific data.
	Metadata map[string]any
}

// AudioSegment is one synthesized dialog line.
type AudioSegment struct {
	Character string
	Text      string
	Path      string
}

// NewState creates a new build state for the given break.
func NewState(brk *models.Break) *State {
	return &State{
		BreakID:   brk.ID,
		Break:     brk,
		StartTime: time.Now(),
		Errors:    make([]error, 0),
		Artifacts: make(map[string][]Artifact),
		Metadata:  make(map[string]any),
	}
}

// AddError adds a non-fatal error to the state.
func (s *State) AddError(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// HasErrors returns true if any non-fatal errors were recorded.
func (s *State) HasErrors() bool {
	return len(s.Errors) > 0
}

// Duration returns the elapsed time since the build start.
func (s *State) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// SetMetadata stores a value in the metadata map.
func (s *State) SetMetadata(key string, value any) {
	s.Metadata[key] = value
}

// GetMetadata retrieves a value from the metadata map.
func (s *State) GetMetadata(key string) (any, bool) {
	v, ok := s.Metadata[key]
	return v, ok
}

// AddArtifact adds an artifact produced by a stage.
func (s *State) AddArtifact(stageID string, artifact Artifact) {
	s.Artifacts[stageID] = append(s.Artifacts[stageID], artifact)
}

// GetArtifacts returns all artifacts produced by a stage.
func (s *State) GetArtifacts(stageID string) []Artifact {
	return s.Artifacts[stageID]
}

// GetArtifactsByType returns all artifacts of a specific type.
func (s *State) GetArtifactsByType(artifactType ArtifactType) []Artifact {
	var result []Artifact
	for _, artifacts := range s.Artifacts {
		for _, a := range artifacts {
			if a.Type == artifactType {
				result = append(result, a)
			}
		}
	}
	return result
}

// StageResult contains the outcome of a stage execution.
type StageResult struct {
	// Artifacts produced by this stage.
	Artifacts []Artifact

	// RecordsProcessed is the count of items handled (stories gathered,
	// lines synthesized, files published).
	RecordsProcessed int

	// Duration is the execution time.
	Duration time.Duration

	// Message is an optional summary message.
	Message string
}

// Result represents the outcome of one break build.
type Result struct {
	// Success indicates the break reached READY, possibly degraded.
	Success bool

	// BreakID is the break the build worked on.
	BreakID models.ULID

	// Rung is the degradation rung the break settled on.
	Rung int

	// AudioPath and VideoPath are the published media paths.
	AudioPath string
	VideoPath string

	// Pushed indicates playout accepted the break.
	Pushed bool

	// Duration is the total assembly time.
	Duration time.Duration

	// StageResults contains results from each stage.
	StageResults map[string]*StageResult

	// Errors contains any errors that occurred, fatal and non-fatal.
	Errors []error
}
