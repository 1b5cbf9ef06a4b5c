package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hermesradio/hermes/internal/models"
)

func TestBreaksHandler_ListNewestFirst(t *testing.T) {
	f := setupAPI(t)
	handler := NewBreaksHandler(f.breaks)
	ctx := context.Background()

	first := f.playedBreak(t, "")
	second := f.playedBreak(t, "")

	out, err := handler.List(ctx, &ListBreaksInput{Limit: 10})
	require.NoError(t, err)
	require.Len(t, out.Body.Breaks, 2)
	assert.Equal(t, second.ID, out.Body.Breaks[0].ID)
	assert.Equal(t, first.ID, out.Body.Breaks[1].ID)
}

func TestBreaksHandler_Get(t *testing.T) {
	f := setupAPI(t)
	handler := NewBreaksHandler(f.breaks)
	ctx := context.Background()

	brk := f.playedBreak(t, "")

	out, err := handler.Get(ctx, &GetBreakInput{ID: brk.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, models.BreakStatusPlayed, out.Body.Status)
	assert.Equal(t, "host_a", out.Body.HostSlug)
}

func TestBreaksHandler_GetMissing(t *testing.T) {
	f := setupAPI(t)
	handler := NewBreaksHandler(f.breaks)

	_, err := handler.Get(context.Background(), &GetBreakInput{ID: models.NewULID().String()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = handler.Get(context.Background(), &GetBreakInput{ID: "garbage"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid break id")
}
