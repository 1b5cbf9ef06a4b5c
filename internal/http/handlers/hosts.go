package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// HostsHandler manages the on-air host personas.
type HostsHandler struct {
	hosts repository.HostRepository
}

// NewHostsHandler creates a new hosts handler.
func NewHostsHandler(hosts repository.HostRepository) *HostsHandler {
	return &HostsHandler{hosts: hosts}
}

// Register registers the host routes with the API.
func (h *HostsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listHosts",
		Method:      "GET",
		Path:        "/api/hosts",
		Summary:     "List host personas",
		Tags:        []string{"Hosts"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "updateHost",
		Method:      "PUT",
		Path:        "/api/hosts/{slug}",
		Summary:     "Update a host persona",
		Description: "Updates the on-air name, style prompt, voices, or active flag. The slug is fixed.",
		Tags:        []string{"Hosts"},
	}, h.Update)
}

// ListHostsInput is the input for listing hosts.
type ListHostsInput struct{}

// ListHostsOutput is the output for listing hosts.
type ListHostsOutput struct {
	Body struct {
		Hosts []*models.Host `json:"hosts"`
	}
}

// List returns every host ordered by slug.
func (h *HostsHandler) List(ctx context.Context, input *ListHostsInput) (*ListHostsOutput, error) {
	hosts, err := h.hosts.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing hosts", err)
	}
	resp := &ListHostsOutput{}
	resp.Body.Hosts = hosts
	return resp, nil
}

// UpdateHostInput is the input for updating a host.
type UpdateHostInput struct {
	Slug string `path:"slug" maxLength:"50"`
	Body struct {
		Name            *string `json:"name,omitempty" maxLength:"100"`
		StylePrompt     *string `json:"style_prompt,omitempty" maxLength:"4096"`
		VoicePiper      *string `json:"voice_piper,omitempty" maxLength:"200"`
		VoiceElevenLabs *string `json:"voice_elevenlabs,omitempty" maxLength:"200"`
		VoiceOpenAI     *string `json:"voice_openai,omitempty" maxLength:"50"`
		Active          *bool   `json:"active,omitempty"`
	}
}

// UpdateHostOutput is the output for updating a host.
type UpdateHostOutput struct {
	Body models.Host
}

// Update changes a host persona in place.
func (h *HostsHandler) Update(ctx context.Context, input *UpdateHostInput) (*UpdateHostOutput, error) {
	host, err := h.hosts.GetBySlug(ctx, input.Slug)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading host", err)
	}
	if host == nil {
		return nil, huma.Error404NotFound("host not found: " + input.Slug)
	}

	if input.Body.Name != nil {
		host.Name = *input.Body.Name
	}
	if input.Body.StylePrompt != nil {
		host.StylePrompt = *input.Body.StylePrompt
	}
	if input.Body.VoicePiper != nil {
		host.VoicePiper = *input.Body.VoicePiper
	}
	if input.Body.VoiceElevenLabs != nil {
		host.VoiceElevenLabs = *input.Body.VoiceElevenLabs
	}
	if input.Body.VoiceOpenAI != nil {
		host.VoiceOpenAI = *input.Body.VoiceOpenAI
	}
	if input.Body.Active != nil {
		host.Active = *input.Body.Active
	}

	if err := host.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := h.hosts.Update(ctx, host); err != nil {
		return nil, huma.Error500InternalServerError("updating host", err)
	}
	return &UpdateHostOutput{Body: *host}, nil
}
