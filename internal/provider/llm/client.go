// Package llm wraps an OpenAI-compatible chat API behind the three
// operations the station needs: scoring headlines, writing monologue
// scripts, and writing two-host dialog. The base URL is configurable so a
// local model server can stand in for the platform.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/hermesradio/hermes/internal/config"
	"github.com/hermesradio/hermes/internal/observability"
)

// defaultModel is used when the config names none.
const defaultModel = "gpt-4o-mini"

// MaxScoreBatch caps one scoring request. Larger batches truncate the JSON
// response often enough that callers loop instead.
const MaxScoreBatch = 12

// Story is one headline as presented to the model.
type Story struct {
	Title  string
	Source string
	Score  int

	// PreviouslyReported tags stories already covered in an earlier break
	// so the writer refers back instead of announcing them as new.
	PreviouslyReported bool
}

// Track is a recently played song for on-air back-references.
type Track struct {
	Title  string
	Artist string
}

// Client is the shared LM client. One instance serves scorer and writers.
type Client struct {
	api       openai.Client
	model     string
	available bool
	logger    *slog.Logger
}

// NewClient creates an LM client from the deployment config. With neither
// an API key nor a base URL the client is unconfigured and every call
// returns ErrUnavailable; the degradation ladder handles it from there.
func NewClient(cfg config.LLMConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		api:       openai.NewClient(opts...),
		model:     model,
		available: cfg.APIKey != "" || cfg.BaseURL != "",
		logger:    observability.WithComponent(logger, "llm"),
	}
}

// ErrUnavailable is returned when no API key or base URL was configured.
var ErrUnavailable = fmt.Errorf("llm provider not configured")

// Available reports whether the client has an endpoint to talk to.
func (c *Client) Available() bool {
	return c.available
}

// complete sends one chat completion and returns the message content.
func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	if !c.available {
		return "", ErrUnavailable
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}

	c.logger.Debug("chat completion",
		slog.String("model", c.model),
		slog.Duration("latency", time.Since(start)),
		slog.Int64("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int64("completion_tokens", resp.Usage.CompletionTokens))

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// ScoreHeadlines rates up to MaxScoreBatch stories 1-10 for broadcast
// newsworthiness. The returned slice is index-aligned with the input; a
// response of the wrong length is an error and no scores should be written.
func (c *Client) ScoreHeadlines(ctx context.Context, stories []Story) ([]int, error) {
	if len(stories) == 0 {
		return nil, nil
	}
	if len(stories) > MaxScoreBatch {
		stories = stories[:MaxScoreBatch]
	}

	var sb strings.Builder
	for i, story := range stories {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i, story.Source, story.Title)
	}

	content, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(scoreSystemPrompt),
			openai.UserMessage(sb.String()),
		},
		Temperature:         param.NewOpt(0.1),
		MaxCompletionTokens: param.NewOpt(int64(1000)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scoring headlines: %w", err)
	}

	scores, err := parseScores(content, len(stories))
	if err != nil {
		return nil, fmt.Errorf("scoring headlines: %w", err)
	}
	return scores, nil
}

// parseScores extracts integer scores from the model response. Models in
// json_object mode wrap the array under varying keys; a bare array, a
// "scores" wrapper, and a "headlines" wrapper are all accepted. Elements
// may be plain integers or objects carrying a "score" field.
func parseScores(content string, want int) ([]int, error) {
	var parsed any
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	var elements []any
	switch v := parsed.(type) {
	case []any:
		elements = v
	case map[string]any:
		if arr, ok := v["scores"].([]any); ok {
			elements = arr
		} else if arr, ok := v["headlines"].([]any); ok {
			elements = arr
		} else {
			return nil, fmt.Errorf("response object has no scores or headlines array")
		}
	default:
		return nil, fmt.Errorf("response is neither array nor object")
	}

	if len(elements) != want {
		return nil, fmt.Errorf("expected %d scores, got %d", want, len(elements))
	}

	scores := make([]int, len(elements))
	for i, element := range elements {
		switch e := element.(type) {
		case float64:
			scores[i] = clampScore(int(e))
		case map[string]any:
			f, ok := e["score"].(float64)
			if !ok {
				return nil, fmt.Errorf("score element %d has no numeric score", i)
			}
			scores[i] = clampScore(int(f))
		default:
			return nil, fmt.Errorf("score element %d has unexpected type", i)
		}
	}
	return scores, nil
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}
