package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/repository"
)

// videoPageSize is how many rendered breaks the video list returns.
const videoPageSize = 20

// VideosHandler lists rendered break videos for the TV feed.
type VideosHandler struct {
	breaks repository.BreakRepository
}

// NewVideosHandler creates a new videos handler.
func NewVideosHandler(breaks repository.BreakRepository) *VideosHandler {
	return &VideosHandler{breaks: breaks}
}

// Register registers the video routes with the API.
func (h *VideosHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listVideos",
		Method:      "GET",
		Path:        "/api/videos",
		Summary:     "List rendered break videos",
		Description: "Returns the last 20 PLAYED breaks that have a rendered video, newest first",
		Tags:        []string{"Videos"},
	}, h.List)

	huma.Register(api, huma.Operation{
		OperationID: "getLatestVideo",
		Method:      "GET",
		Path:        "/api/videos/latest",
		Summary:     "Get the newest rendered break video",
		Tags:        []string{"Videos"},
	}, h.Latest)
}

// ListVideosInput is the input for listing videos.
type ListVideosInput struct{}

// ListVideosOutput is the output for listing videos.
type ListVideosOutput struct {
	Body struct {
		Videos []*models.Break `json:"videos"`
	}
}

// List returns the recent PLAYED breaks carrying a video.
func (h *VideosHandler) List(ctx context.Context, input *ListVideosInput) (*ListVideosOutput, error) {
	videos, err := h.breaks.GetPlayedWithVideo(ctx, videoPageSize)
	if err != nil {
		return nil, huma.Error500InternalServerError("listing videos", err)
	}
	resp := &ListVideosOutput{}
	resp.Body.Videos = videos
	return resp, nil
}

// LatestVideoInput is the input for the latest video.
type LatestVideoInput struct{}

// LatestVideoOutput is the output for the latest video.
type LatestVideoOutput struct {
	Body models.Break
}

// Latest returns the newest PLAYED break carrying a video.
func (h *VideosHandler) Latest(ctx context.Context, input *LatestVideoInput) (*LatestVideoOutput, error) {
	videos, err := h.breaks.GetPlayedWithVideo(ctx, 1)
	if err != nil {
		return nil, huma.Error500InternalServerError("loading latest video", err)
	}
	if len(videos) == 0 {
		return nil, huma.Error404NotFound("no rendered break videos yet")
	}
	return &LatestVideoOutput{Body: *videos[0]}, nil
}
