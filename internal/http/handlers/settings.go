package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// SettingsHandler exposes the runtime settings registry. Settings apply on
// the next read; nothing here requires a restart.
type SettingsHandler struct {
	settings repository.SettingRepository
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(settings repository.SettingRepository) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Register registers the settings routes with the API.
func (h *SettingsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listSettings",
		Method:      "GET",
		Path:        "/api/settings",
		Summary:     "List runtime settings",
		Tags:        []string{"Settings"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "updateSettings",
		Method:      "PUT",
		Path:        "/api/settings",
		Summary:     "Update runtime settings in bulk",
		Description: "Sets every key in the request body. Unknown keys are created.",
		Tags:        []string{"Settings"},
	}, h.UpdateBulk)

	huma.Register(api, huma.Operation{
		OperationID: "getSetting",
		Method:      "GET",
		Path:        "/api/settings/{key}",
		Summary:     "Get one runtime setting",
		Tags:        []string{"Settings"},
	}, h.Get)

	huma.Register(api, huma.Operation{
		OperationID: "updateSetting",
		Method:      "PUT",
		Path:        "/api/settings/{key}",
		Summary:     "Update one runtime setting",
		Tags:        []string{"Settings"},
	}, h.Update)
}

// ListSettingsInput is the input for listing settings.
type ListSettingsInput struct{}

// ListSettingsOutput is the output for listing settings.
type ListSettingsOutput struct {
	Body struct {
		Settings []*models.Setting `json:"settings"`
	}
}

// List returns every setting ordered by key.
func (h *SettingsHandler) List(ctx context.Context, input *ListSettingsInput) (*ListSettingsOutput, error) {
	settings, err := h.settings.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing settings", err)
	}
	resp := &ListSettingsOutput{}
	resp.Body.Settings = settings
	return resp, nil
}

// GetSettingInput is the input for getting one setting.
type GetSettingInput struct {
	Key string `path:"key" maxLength:"100"`
}

// GetSettingOutput is the output for getting one setting.
type GetSettingOutput struct {
	Body models.Setting
}

// Get returns one setting by key.
func (h *SettingsHandler) Get(ctx context.Context, input *GetSettingInput) (*GetSettingOutput, error) {
	setting, err := h.settings.Get(ctx, input.Key)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading setting", err)
	}
	if setting == nil {
		return nil, huma.Error404NotFound("setting not found: " + input.Key)
	}
	return &GetSettingOutput{Body: *setting}, nil
}

// UpdateSettingInput is the input for updating one setting.
type UpdateSettingInput struct {
	Key  string `path:"key" maxLength:"100"`
	Body struct {
		Value string `json:"value" maxLength:"8192"`
	}
}

// UpdateSettingOutput is the output for updating one setting.
type UpdateSettingOutput struct {
	Body models.Setting
}

// Update sets one setting value.
func (h *SettingsHandler) Update(ctx context.Context, input *UpdateSettingInput) (*UpdateSettingOutput, error) {
	if err := h.settings.Set(ctx, input.Key, input.Body.Value); err != nil {
		return nil, huma.Error500InternalServerError("saving setting", err)
	}
	setting, err := h.settings.Get(ctx, input.Key)
	if err != nil || setting == nil {
		return nil, huma.Error500InternalServerError("reloading setting", err)
	}
	return &UpdateSettingOutput{Body: *setting}, nil
}

// UpdateSettingsBulkInput is the input for a bulk settings update.
type UpdateSettingsBulkInput struct {
	Body map[string]string
}

// UpdateSettingsBulkOutput is the output for a bulk settings update.
type UpdateSettingsBulkOutput struct {
	Body struct {
		Updated int `json:"updated"`
	}
}

// UpdateBulk sets every key in the request body.
func (h *SettingsHandler) UpdateBulk(ctx context.Context, input *UpdateSettingsBulkInput) (*UpdateSettingsBulkOutput, error) {
	for key, value := range input.Body {
		if err := h.settings.Set(ctx, key, value); err != nil {
			return nil, huma.Error500InternalServerError("saving setting "+key, err)
		}
	}
	resp := &UpdateSettingsBulkOutput{}
	resp.Body.Updated = len(input.Body)
	return resp, nil
}
