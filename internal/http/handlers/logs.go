package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// LogsHandler exposes the operational event log.
type LogsHandler struct {
	events repository.EventRepository
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(events repository.EventRepository) *LogsHandler {
	return &LogsHandler{events: events}
}

// Register registers the logs route with the API.
func (h *LogsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listLogs",
		Method:      "GET",
		Path:        "/api/logs",
		Summary:     "List operational events",
		Description: "Returns events newest first. The type filter matches event types by prefix, e.g. type=break matches break_ready and break_failed.",
		Tags:        []string{"Logs"},
	}, h.List)
}

// ListLogsInput is the input for listing events.
type ListLogsInput struct {
	Type   string `query:"type" maxLength:"50" doc:"Event type prefix filter"`
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"200"`
	Offset int    `query:"offset" default:"0" minimum:"0"`
}

// ListLogsOutput is the output for listing events.
type ListLogsOutput struct {
	Body struct {
		Events []*models.Event `json:"events"`
		Total  int64           `json:"total"`
		Limit  int             `json:"limit"`
		Offset int             `json:"offset"`
	}
}

// List returns a page of events.
func (h *LogsHandler) List(ctx context.Context, input *ListLogsInput) (*ListLogsOutput, error) {
	limit := input.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}

	events, total, err := h.events.List(ctx, input.Type, limit, input.Offset)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing events", err)
	}

	resp := &ListLogsOutput{}
	resp.Body.Events = events
	resp.Body.Total = total
	resp.Body.Limit = limit
	resp.Body.Offset = input.Offset
	return resp, nil
}
