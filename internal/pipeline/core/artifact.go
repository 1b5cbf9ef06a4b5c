package core

import (
	"time"

	"github.com/hermesradio/hermes/internal/models"
)

// ArtifactType identifies the type of content in an artifact.
type ArtifactType string

const (
	// ArtifactTypeScript represents monologue script text.
	ArtifactTypeScript ArtifactType = "script"

	// ArtifactTypeDialog represents a structured two-host script.
	ArtifactTypeDialog ArtifactType = "dialog"

	// ArtifactTypeAudio represents synthesized break audio.
	ArtifactTypeAudio ArtifactType = "audio"

	// ArtifactTypeVideo represents a rendered break video.
	ArtifactTypeVideo ArtifactType = "video"
)

// ProcessingStage indicates the processing state of an artifact.
type ProcessingStage string

const (
	// ProcessingStageDraft indicates writer output before validation.
	ProcessingStageDraft ProcessingStage = "draft"

	// ProcessingStageValidated indicates a script the content filter passed.
	ProcessingStageValidated ProcessingStage = "validated"

	// ProcessingStageSynthesized indicates audio produced by the speech chain.
	ProcessingStageSynthesized ProcessingStage = "synthesized"

	// ProcessingStageRendered indicates a composited video.
	ProcessingStageRendered ProcessingStage = "rendered"

	// ProcessingStagePublished indicates files moved into the breaks library.
	ProcessingStagePublished ProcessingStage = "published"
)

// Artifact represents an output from a pipeline stage.
type Artifact struct {
	// ID is a unique identifier for this artifact.
	ID models.ULID

	// Type identifies the content type.
	Type ArtifactType

	// Stage indicates the processing stage.
	Stage ProcessingStage

	// FilePath is the path to the artifact file (if file-based).
	FilePath string

	// CreatedBy is the stage ID that created this artifact.
	CreatedBy string

	// RecordCount counts the artifact's items: words in a script, lines in
	// a dialog, segments in an audio file.
	RecordCount int

	// FileSize is the size in bytes (if file-based).
	FileSize int64

	// CreatedAt is when the artifact was created.
	CreatedAt time.Time

	// Metadata contains additional artifact-specific data.
	Metadata map[string]any
}

// NewArtifact creates a new artifact with the given type and stage.
func NewArtifact(artifactType ArtifactType, stage ProcessingStage, createdBy string) Artifact {
	return Artifact{
		ID:        models.NewULID(),
		Type:      artifactType,
		Stage:     stage,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// WithFilePath sets the file path for the artifact.
func (a Artifact) WithFilePath(path string) Artifact {
	a.FilePath = path
	return a
}

// WithRecordCount sets the record count for the artifact.
func (a Artifact) WithRecordCount(count int) Artifact {
	a.RecordCount = count
	return a
}

// WithFileSize sets the file size for the artifact.
func (a Artifact) WithFileSize(size int64) Artifact {
	a.FileSize = size
	return a
}

// WithMetadata adds metadata to the artifact.
func (a Artifact) WithMetadata(key string, value any) Artifact {
	a.Metadata[key] = value
	return a
}
