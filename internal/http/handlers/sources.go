package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// SourcesHandler manages the RSS feed sources the news gatherer polls.
type SourcesHandler struct {
	sources repository.FeedSourceRepository
	events  repository.EventRepository
}

// NewSourcesHandler creates a new feed sources handler.
func NewSourcesHandler(sources repository.FeedSourceRepository, events repository.EventRepository) *SourcesHandler {
	return &SourcesHandler{sources: sources, events: events}
}

// Register registers the feed source routes with the API.
func (h *SourcesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSources",
		Method:      "GET",
		Path:        "/api/sources",
		Summary:     "List feed sources",
		Tags:        []string{"Sources"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "createSource",
		Method:        "POST",
		Path:          "/api/sources",
		Summary:       "Add a feed source",
		Tags:          []string{"Sources"},
		DefaultStatus: 201,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "updateSource",
		Method:      "PUT",
		Path:        "/api/sources/{id}",
		Summary:     "Update a feed source",
		Description: "Updates name, URL, or the active flag. Reactivating a dead source clears its failure streak.",
		Tags:        []string{"Sources"},
	}, h.Update)

	huma.Register(api, huma.Operation{
		OperationID: "deleteSource",
		Method:      "DELETE",
		Path:        "/api/sources/{id}",
		Summary:     "Remove a feed source",
		Tags:        []string{"Sources"},
	}, h.Delete)
}

// ListSourcesInput is the input for listing feed sources.
type ListSourcesInput struct{}

// ListSourcesOutput is the output for listing feed sources.
type ListSourcesOutput struct {
	Body struct {
		Sources []*models.FeedSource `json:"sources"`
	}
}

// List returns every feed source ordered by name.
func (h *SourcesHandler) List(ctx context.Context, input *ListSourcesInput) (*ListSourcesOutput, error) {
	sources, err := h.sources.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing sources", err)
	}
	resp := &ListSourcesOutput{}
	resp.Body.Sources = sources
	return resp, nil
}

// CreateSourceInput is the input for adding a feed source.
type CreateSourceInput struct {
	Body struct {
		Name string `json:"name" minLength:"1" maxLength:"100"`
		URL  string `json:"url" minLength:"1" maxLength:"2048" format:"uri"`
	}
}

// CreateSourceOutput is the output for adding a feed source.
type CreateSourceOutput struct {
	Body models.FeedSource
}

// Create adds a feed source.
func (h *SourcesHandler) Create(ctx context.Context, input *CreateSourceInput) (*CreateSourceOutput, error) {
	existing, err := h.sources.GetByName(ctx, input.Body.Name)
	if err != nil {
		return nil, huma.Error500InternalServerError("checking source name", err)
	}
	if existing != nil {
		return nil, huma.Error409Conflict("source already exists: " + input.Body.Name)
	}

	source := &models.FeedSource{
		Name:    input.Body.Name,
		URL:     input.Body.URL,
		Active:  true,
		Healthy: true,
	}
	if err := source.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := h.sources.Create(ctx, source); err != nil {
		return nil, huma.Error500InternalServerError("creating source", err)
	}
	return &CreateSourceOutput{Body: *source}, nil
}

// UpdateSourceInput is the input for updating a feed source.
type UpdateSourceInput struct {
	ID   string `path:"id" doc:"Feed source ULID"`
	Body struct {
		Name   *string `json:"name,omitempty" maxLength:"100"`
		URL    *string `json:"url,omitempty" maxLength:"2048"`
		Active *bool   `json:"active,omitempty"`
	}
}

// UpdateSourceOutput is the output for updating a feed source.
type UpdateSourceOutput struct {
	Body models.FeedSource
}

// Update changes a feed source in place.
func (h *SourcesHandler) Update(ctx context.Context, input *UpdateSourceInput) (*UpdateSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid source id")
	}

	source, err := h.sources.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading source", err)
	}
	if source == nil {
		return nil, huma.Error404NotFound("source not found")
	}

	if input.Body.Name != nil {
		source.Name = *input.Body.Name
	}
	if input.Body.URL != nil {
		source.URL = *input.Body.URL
	}
	revived := false
	if input.Body.Active != nil {
		source.Active = *input.Body.Active
		if source.Active && !source.Healthy {
			// A re-enabled source gets a clean slate; the collector
			// skips dead sources, so this is the recovery path.
			source.ConsecutiveFailures = 0
			source.Healthy = true
			revived = true
		}
	}

	if err := source.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := h.sources.Update(ctx, source); err != nil {
		return nil, huma.Error500InternalServerError("updating source", err)
	}
	if revived {
		_ = h.events.Log(ctx, models.EventFeedRecovered,
			fmt.Sprintf("feed source %q re-enabled", source.Name),
			map[string]string{"source": source.Name})
	}
	return &UpdateSourceOutput{Body: *source}, nil
}

// DeleteSourceInput is the input for removing a feed source.
type DeleteSourceInput struct {
	ID string `path:"id" doc:"Feed source ULID"`
}

// DeleteSourceOutput is the output for removing a feed source.
type DeleteSourceOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// Delete removes a feed source.
func (h *SourcesHandler) Delete(ctx context.Context, input *DeleteSourceInput) (*DeleteSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid source id")
	}

	source, err := h.sources.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading source", err)
	}
	if source == nil {
		return nil, huma.Error404NotFound("source not found")
	}
	if err := h.sources.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("deleting source", err)
	}

	resp := &DeleteSourceOutput{}
	resp.Body.Deleted = true
	return resp, nil
}
