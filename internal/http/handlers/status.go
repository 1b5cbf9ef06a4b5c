package handlers

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/shared"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
)

// SchedulerStatus is the slice of the scheduler the status endpoint reads.
type SchedulerStatus interface {
	Running() bool
	QuietNow(ctx context.Context) (quiet bool, window string)
	Interval(ctx context.Context) time.Duration
}

// StatusHandler serves the now-playing view: what is queued, what is
// building, and where the cadence stands.
type StatusHandler struct {
	breaks    repository.BreakRepository
	tracker   *shared.BuildTracker
	tracks    *service.TrackLog
	scheduler SchedulerStatus
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(breaks repository.BreakRepository, tracker *shared.BuildTracker, tracks *service.TrackLog, scheduler SchedulerStatus) *StatusHandler {
	return &StatusHandler{
		breaks:    breaks,
		tracker:   tracker,
		tracks:    tracks,
		scheduler: scheduler,
	}
}

// Register registers the status route with the API.
func (h *StatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getStatusNow",
		Method:      "GET",
		Path:        "/api/status/now",
		Summary:     "Now playing",
		Description: "Returns the queued break, in-flight builds, scheduler state, and recent tracks",
		Tags:        []string{"Status"},
	}, h.GetNow)
}

// RecentTrack is one recently played music track.
type RecentTrack struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
}

// SchedulerState summarizes the cadence loop for the status view.
type SchedulerState struct {
	Running         bool   `json:"running"`
	Quiet           bool   `json:"quiet"`
	QuietWindow     string `json:"quiet_window,omitempty"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// StatusNowResponse is the now-playing response body.
type StatusNowResponse struct {
	OnAir               *models.Break      `json:"on_air,omitempty"`
	NextBreak           *models.Break      `json:"next_break,omitempty"`
	LastPlayed          *models.Break      `json:"last_played,omitempty"`
	Building            []shared.BuildView `json:"building"`
	Scheduler           SchedulerState     `json:"scheduler"`
	TracksSinceLastPush int                `json:"tracks_since_last_push"`
	RecentTracks        []RecentTrack      `json:"recent_tracks"`
}

// StatusNowInput is the input for the status endpoint.
type StatusNowInput struct{}

// StatusNowOutput is the output for the status endpoint.
type StatusNowOutput struct {
	Body StatusNowResponse
}

// GetNow returns the now-playing view.
func (h *StatusHandler) GetNow(ctx context.Context, input *StatusNowInput) (*StatusNowOutput, error) {
	onAir, err := h.breaks.GetLatestByStatus(ctx, models.BreakStatusPushed)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading pushed break", err)
	}
	next, err := h.breaks.GetLatestByStatus(ctx, models.BreakStatusReady)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading ready break", err)
	}
	last, err := h.breaks.GetLatestByStatus(ctx, models.BreakStatusPlayed)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading played break", err)
	}

	resp := StatusNowResponse{
		OnAir:      onAir,
		NextBreak:  next,
		LastPlayed: last,
		Building:   []shared.BuildView{},
	}
	if h.tracker != nil {
		resp.Building = h.tracker.Active()
	}

	if h.scheduler != nil {
		quiet, window := h.scheduler.QuietNow(ctx)
		resp.Scheduler = SchedulerState{
			Running:         h.scheduler.Running(),
			Quiet:           quiet,
			QuietWindow:     window,
			IntervalMinutes: int(h.scheduler.Interval(ctx) / time.Minute),
		}
	}

	if h.tracks != nil {
		resp.TracksSinceLastPush = h.tracks.Count()
		recent := h.tracks.Recent(10)
		resp.RecentTracks = make([]RecentTrack, 0, len(recent))
		for _, track := range recent {
			resp.RecentTracks = append(resp.RecentTracks, RecentTrack{
				Title:  track.Title,
				Artist: track.Artist,
			})
		}
	} else {
		resp.RecentTracks = []RecentTrack{}
	}

	return &StatusNowOutput{Body: resp}, nil
}
