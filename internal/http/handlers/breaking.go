package handlers

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/hermesradio/hermes/internal/pipeline"
)

// BreakingBuilder is the slice of the pipeline the trigger endpoint drives.
type BreakingBuilder interface {
	BuildBreaking(ctx context.Context, reason, note string) (*pipeline.Result, error)
}

// BreakingHandler handles manual breaking-break triggers.
type BreakingHandler struct {
	builder BreakingBuilder
	logger  *slog.Logger
}

// NewBreakingHandler creates a new breaking trigger handler.
func NewBreakingHandler(builder BreakingBuilder, logger *slog.Logger) *BreakingHandler {
	return &BreakingHandler{builder: builder, logger: logger}
}

// Register registers the breaking trigger with the API.
func (h *BreakingHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "triggerBreaking",
		Method:        "POST",
		Path:          "/api/breaking/trigger",
		Summary:       "Trigger a breaking break",
		Description:   "Starts a breaking-news break build in the background and acknowledges immediately",
		Tags:          []string{"Breaking"},
		DefaultStatus: 202,
	}, h.Trigger)
}

// BreakingTriggerInput is the manual trigger request.
type BreakingTriggerInput struct {
	Body struct {
		Reason string `json:"reason" minLength:"1" maxLength:"500" doc:"Why this break is being forced"`
		Note   string `json:"note,omitempty" maxLength:"2000" doc:"Optional detail handed to the script writer"`
	}
}

// BreakingTriggerOutput is the manual trigger acknowledgement.
type BreakingTriggerOutput struct {
	Body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
}

// Trigger starts the build and returns before it finishes. Breaking breaks
// preempt everything; the admission gates for scheduled builds do not apply.
func (h *BreakingHandler) Trigger(ctx context.Context, input *BreakingTriggerInput) (*BreakingTriggerOutput, error) {
	reason := input.Body.Reason
	note := input.Body.Note

	// The build outlives the request.
	buildCtx := context.WithoutCancel(ctx)
	go func() {
		result, err := h.builder.BuildBreaking(buildCtx, reason, note)
		if err != nil {
			h.logger.Error("breaking build failed",
				slog.String("reason", reason),
				slog.Any("error", err))
			return
		}
		h.logger.Info("breaking build finished",
			slog.String("break_id", result.BreakID.String()),
			slog.Bool("success", result.Success),
			slog.Int("rung", result.Rung))
	}()

	resp := &BreakingTriggerOutput{}
	resp.Body.Status = "accepted"
	resp.Body.Reason = reason
	return resp, nil
}
