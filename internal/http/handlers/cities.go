package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// CitiesHandler manages the weather city rotation.
type CitiesHandler struct {
	cities repository.CityRepository
}

// NewCitiesHandler creates a new cities handler.
func NewCitiesHandler(cities repository.CityRepository) *CitiesHandler {
	return &CitiesHandler{cities: cities}
}

// Register registers the city routes with the API.
func (h *CitiesHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listCities",
		Method:      "GET",
		Path:        "/api/cities",
		Summary:     "List weather cities",
		Tags:        []string{"Cities"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID:   "createCity",
		Method:        "POST",
		Path:          "/api/cities",
		Summary:       "Add a weather city",
		Tags:          []string{"Cities"},
		DefaultStatus: 201,
	}, h.Create)

	huma.Register(api, huma.Operation{
		OperationID: "deleteCity",
		Method:      "DELETE",
		Path:        "/api/cities/{id}",
		Summary:     "Remove a weather city",
		Tags:        []string{"Cities"},
	}, h.Delete)
}

// ListCitiesInput is the input for listing cities.
type ListCitiesInput struct{}

// ListCitiesOutput is the output for listing cities.
type ListCitiesOutput struct {
	Body struct {
		Cities []*models.City `json:"cities"`
	}
}

// List returns every city ordered by name.
func (h *CitiesHandler) List(ctx context.Context, input *ListCitiesInput) (*ListCitiesOutput, error) {
	cities, err := h.cities.GetAll(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing cities", err)
	}
	resp := &ListCitiesOutput{}
	resp.Body.Cities = cities
	return resp, nil
}

// CreateCityInput is the input for adding a city.
type CreateCityInput struct {
	Body struct {
		Name      string  `json:"name" minLength:"1" maxLength:"100"`
		Latitude  float64 `json:"latitude" minimum:"-90" maximum:"90"`
		Longitude float64 `json:"longitude" minimum:"-180" maximum:"180"`
	}
}

// CreateCityOutput is the output for adding a city.
type CreateCityOutput struct {
	Body models.City
}

// Create adds a city to the rotation.
func (h *CitiesHandler) Create(ctx context.Context, input *CreateCityInput) (*CreateCityOutput, error) {
	existing, err := h.cities.GetByName(ctx, input.Body.Name)
	if err != nil {
		return nil, huma.Error500InternalServerError("checking city name", err)
	}
	if existing != nil {
		return nil, huma.Error409Conflict("city already exists: " + input.Body.Name)
	}

	city := &models.City{
		Name:      input.Body.Name,
		Latitude:  input.Body.Latitude,
		Longitude: input.Body.Longitude,
		Active:    true,
	}
	if err := city.Validate(); err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}
	if err := h.cities.Create(ctx, city); err != nil {
		return nil, huma.Error500InternalServerError("creating city", err)
	}
	return &CreateCityOutput{Body: *city}, nil
}

// DeleteCityInput is the input for removing a city.
type DeleteCityInput struct {
	ID string `path:"id" doc:"City ULID"`
}

// DeleteCityOutput is the output for removing a city.
type DeleteCityOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// Delete removes a city from the rotation.
func (h *CitiesHandler) Delete(ctx context.Context, input *DeleteCityInput) (*DeleteCityOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity("invalid city id")
	}

	city, err := h.cities.GetByID(ctx, id)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading city", err)
	}
	if city == nil {
		return nil, huma.Error404NotFound("city not found")
	}
	if err := h.cities.Delete(ctx, id); err != nil {
		return nil, huma.Error500InternalServerError("deleting city", err)
	}

	resp := &DeleteCityOutput{}
	resp.Body.Deleted = true
	return resp, nil
}
