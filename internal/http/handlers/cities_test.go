package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCityInput(name string, lat, lon float64) *CreateCityInput {
	input := &CreateCityInput{}
	input.Body.Name = name
	input.Body.Latitude = lat
	input.Body.Longitude = lon
	return input
}

func TestCitiesHandler_CreateListDelete(t *testing.T) {
	f := setupAPI(t)
	handler := NewCitiesHandler(f.cities)
	ctx := context.Background()

	created, err := handler.Create(ctx, createCityInput("Reykjavik", 64.15, -21.94))
	require.NoError(t, err)
	assert.True(t, created.Body.Active)

	list, err := handler.List(ctx, &ListCitiesInput{})
	require.NoError(t, err)
	require.Len(t, list.Body.Cities, 1)

	deleted, err := handler.Delete(ctx, &DeleteCityInput{ID: created.Body.ID.String()})
	require.NoError(t, err)
	assert.True(t, deleted.Body.Deleted)

	list, err = handler.List(ctx, &ListCitiesInput{})
	require.NoError(t, err)
	assert.Empty(t, list.Body.Cities)
}

func TestCitiesHandler_DuplicateNameRejected(t *testing.T) {
	f := setupAPI(t)
	handler := NewCitiesHandler(f.cities)
	ctx := context.Background()

	_, err := handler.Create(ctx, createCityInput("Oslo", 59.91, 10.75))
	require.NoError(t, err)

	_, err = handler.Create(ctx, createCityInput("Oslo", 59.91, 10.75))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCitiesHandler_DeleteBadID(t *testing.T) {
	f := setupAPI(t)
	handler := NewCitiesHandler(f.cities)

	_, err := handler.Delete(context.Background(), &DeleteCityInput{ID: "not-a-ulid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid city id")
}
