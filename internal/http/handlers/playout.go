package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/http/middleware"
	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/repository"
	"github.com/hermesradio/hermes/internal/service"
)

// TrackObserver feeds track-counter readings into PLAYED detection.
type TrackObserver interface {
	ObserveTrackCount(ctx context.Context, count int)
}

// PrepTrigger decides whether a track change should start break
// preparation. It returns the action taken: "prepare_break" or "none".
type PrepTrigger interface {
	TrackChanged(ctx context.Context, count int) string
}

// PlayoutHandler receives events pushed by the playout system. The webhook
// is the low-latency alternative to the poll loop; both feed the same
// counter mirror and PLAYED detection.
type PlayoutHandler struct {
	tracks   *service.TrackLog
	observer TrackObserver
	trigger  PrepTrigger
	events   repository.EventRepository
	logger   *slog.Logger
}

// NewPlayoutHandler creates a new playout webhook handler.
func NewPlayoutHandler(tracks *service.TrackLog, observer TrackObserver, trigger PrepTrigger, events repository.EventRepository, logger *slog.Logger) *PlayoutHandler {
	return &PlayoutHandler{
		tracks:   tracks,
		observer: observer,
		trigger:  trigger,
		events:   events,
		logger:   logger,
	}
}

// Register registers the playout webhook with the API.
func (h *PlayoutHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "postPlayoutEvent",
		Method:      "POST",
		Path:        "/api/playout/event",
		Summary:     "Playout event webhook",
		Description: "Accepts events from the playout system on the same host. track_change advances the track counter and may trigger break preparation.",
		Tags:        []string{"Playout"},
	}, h.PostEvent)
}

// PlayoutEventInput is the playout webhook request.
type PlayoutEventInput struct {
	Body struct {
		Event                string `json:"event" doc:"Event type, e.g. track_change"`
		TracksSinceLastBreak int    `json:"tracks_since_last_break,omitempty" minimum:"0"`
		Track                struct {
			Title  string `json:"title,omitempty"`
			Artist string `json:"artist,omitempty"`
		} `json:"track,omitempty"`
	}
}

// PlayoutEventOutput is the playout webhook response.
type PlayoutEventOutput struct {
	Body struct {
		Status     string `json:"status"`
		Action     string `json:"action"`
		TrackCount int    `json:"track_count"`
	}
}

// PostEvent handles one playout event. Only loopback callers are accepted;
// the playout system runs on the same box and needs no shared secret.
// Unknown event types are logged and acknowledged so a playout upgrade
// cannot wedge the webhook.
func (h *PlayoutHandler) PostEvent(ctx context.Context, input *PlayoutEventInput) (*PlayoutEventOutput, error) {
	ip := middleware.ClientIPFromContext(ctx)
	if !middleware.IsLoopback(ip) {
		return nil, huma.Error403Forbidden("playout events are accepted from localhost only")
	}

	resp := &PlayoutEventOutput{}
	resp.Body.Status = "ok"
	resp.Body.Action = "none"

	switch input.Body.Event {
	case "track_change":
		count := input.Body.TracksSinceLastBreak
		h.tracks.TrackChange(count, llm.Track{
			Title:  input.Body.Track.Title,
			Artist: input.Body.Track.Artist,
		})
		if h.observer != nil {
			h.observer.ObserveTrackCount(ctx, count)
		}
		if h.trigger != nil {
			resp.Body.Action = h.trigger.TrackChanged(ctx, count)
		}
		resp.Body.TrackCount = count

		if err := h.events.Log(ctx, models.EventTrackChange, "track change", map[string]any{
			"track_count": count,
			"title":       input.Body.Track.Title,
		}); err != nil {
			h.logger.WarnContext(ctx, "recording track change failed", slog.Any("error", err))
		}

	default:
		h.logger.InfoContext(ctx, "unknown playout event accepted",
			slog.String("event", input.Body.Event))
		resp.Body.Action = "ignored"
		resp.Body.TrackCount = h.tracks.Count()
	}

	return resp, nil
}
