package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// defaultBreakPageSize bounds the break list when no limit is given.
const defaultBreakPageSize = 50

// BreaksHandler exposes the break queue for inspection.
type BreaksHandler struct {
	breaks repository.BreakRepository
}

// NewBreaksHandler creates a new breaks handler.
func NewBreaksHandler(breaks repository.BreakRepository) *BreaksHandler {
	return &BreaksHandler{breaks: breaks}
}

// Register registers the break routes with the API.
func (h *BreaksHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listBreaks",
		Method:      "GET",
		Path:        "/api/breaks",
		Summary:     "List recent breaks",
		Tags:        []string{"Breaks"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getBreak",
		Method:      "GET",
		Path:        "/api/breaks/{id}",
		Summary:     "Get one break",
		Tags:        []string{"Breaks"},
	}, h.Get)
}

// ListBreaksInput is the input for listing breaks.
type ListBreaksInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"200"`
}

// ListBreaksOutput is the output for listing breaks.
type ListBreaksOutput struct {
	Body struct {
		Breaks []*models.Break `json:"breaks"`
	}
}

// List returns the newest breaks, most recent first.
func (h *BreaksHandler) List(ctx context.Context, input *ListBreaksInput) (*ListBreaksOutput, error) {
	limit := input.Limit
	if limit < 1 {
		limit = defaultBreakPageSize
	}

	breaks, err := h.breaks.GetRecent(ctx, limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing breaks", err)
	}
	resp := &ListBreaksOutput{}
	resp.Body.Breaks = breaks
	return resp, nil
}

// GetBreakInput is the input for getting one break.
type GetBreakInput struct {
	ID string `path:"id" doc:"Break ULID"`
}

// GetBreakOutput is the output for getting one break.
type GetBreakOutput struct {
	Body models.Break
}

// Get returns one break by ID with its full script and meta.
func (h *BreaksHandler) Get(ctx context.Context, input *GetBreakInput) (*GetBreakOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid break id")
	}

	brk, err := h.breaks.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading break", err)
	}
	if brk == nil {
		return nil, huma.Error404NotFound("break not found")
	}
	return &GetBreakOutput{Body: *brk}, nil
}
