package shared

import (
	"sync"
	"time"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
)

// BuildTracker records where each in-flight build currently sits. The
// status API reads it to show what a PREPARING break is doing right now.
type BuildTracker struct {
	mu       sync.RWMutex
	builds   map[models.ULID]*BuildView
	callback BuildCallback
}

// BuildView is a point-in-time picture of one build.
type BuildView struct {
	BreakID   models.ULID `json:"break_id"`
	Stage     string      `json:"stage"`
	StartedAt time.Time   `json:"started_at"`
}

// BuildCallback is called on every stage transition.
type BuildCallback func(view BuildView)

// NewBuildTracker creates a new BuildTracker.
func NewBuildTracker() *BuildTracker {
	return &BuildTracker{
		builds: make(map[models.ULID]*BuildView),
	}
}

// SetCallback registers an observer for stage transitions.
func (t *BuildTracker) SetCallback(callback BuildCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callback = callback
}

// StageStarted implements core.ProgressReporter.
func (t *BuildTracker) StageStarted(breakID models.ULID, stageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	view, ok := t.builds[breakID]
	if !ok {
		view = &BuildView{BreakID: breakID, StartedAt: time.Now()}
		t.builds[breakID] = view
	}
	view.Stage = stageID

	if t.callback != nil {
		t.callback(*view)
	}
}

// BuildFinished implements core.ProgressReporter.
func (t *BuildTracker) BuildFinished(breakID models.ULID, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.builds, breakID)
}

// View returns the current view for one build, or nil when it is not
// running.
func (t *BuildTracker) View(breakID models.ULID) *BuildView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	view, ok := t.builds[breakID]
	if !ok {
		return nil
	}
	copied := *view
	return &copied
}

// Active returns a snapshot of every in-flight build.
func (t *BuildTracker) Active() []BuildView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	views := make([]BuildView, 0, len(t.builds))
	for _, view := range t.builds {
		views = append(views, *view)
	}
	return views
}

// Ensure BuildTracker implements core.ProgressReporter.
var _ core.ProgressReporter = (*BuildTracker)(nil)
