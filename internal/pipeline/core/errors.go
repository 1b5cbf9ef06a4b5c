package core

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline errors.
var (
	// ErrAlreadyPreparing is returned by the admission gate when a
	// scheduled break is already in PREPARING.
	ErrAlreadyPreparing = errors.New("a scheduled break is already preparing")

	// ErrCooldown is returned when a scheduled build lands inside the
	// cooldown window after the previous one.
	ErrCooldown = errors.New("inside the scheduled break cooldown")

	// ErrBuildAlreadyRunning indicates a build is already executing for
	// this break.
	ErrBuildAlreadyRunning = errors.New("build already running for this break")

	// ErrStageNotFound indicates a requested stage was not found.
	ErrStageNotFound = errors.New("stage not found")

	// ErrInvalidConfiguration indicates invalid pipeline configuration.
	ErrInvalidConfiguration = errors.New("invalid pipeline configuration")
)

// StageError wraps an error with stage context.
type StageError struct {
	StageID   string
	StageName string
	Err       error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s (%s): %v", e.StageName, e.StageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError creates a new StageError.
func NewStageError(stageID, stageName string, err error) *StageError {
	return &StageError{
		StageID:   stageID,
		StageName: stageName,
		Err:       err,
	}
}

// BuildFailure is a fatal stage outcome: the break must be marked FAILED
// with this reason. Reasons are stable strings operators can alert on, as
// opposed to the wrapped error chain.
type BuildFailure struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *BuildFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap returns the underlying error.
func (e *BuildFailure) Unwrap() error {
	return e.Err
}

// NewBuildFailure creates a new BuildFailure.
func NewBuildFailure(reason string, err error) *BuildFailure {
	return &BuildFailure{Reason: reason, Err: err}
}

// FailReason extracts the break fail reason from a build error: the stable
// reason when a BuildFailure is in the chain, the error text otherwise.
func FailReason(err error) string {
	var bf *BuildFailure
	if errors.As(err, &bf) {
		return bf.Reason
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "build aborted: " + err.Error()
	}
	return err.Error()
}

// ConfigurationError represents a configuration problem.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Field, e.Message)
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: message,
	}
}
