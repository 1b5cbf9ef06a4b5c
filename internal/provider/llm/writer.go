package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/provider/market"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/pkg/format"
)

// Token budgets for the writer. Market data earns extra room; the segment
// has more numbers to read.
const (
	writerMaxTokens       = 200
	writerMaxTokensMarket = 400
	dialogMaxTokens       = 1500
)

// ScriptRequest carries everything the monologue writer needs.
type ScriptRequest struct {
	Host         *models.Host
	MasterPrompt string

	Weather []*weather.Observation
	Stories []Story
	Quote   *market.Quote
	Tracks  []Track

	// Breaking switches the writer to urgent phrasing and the tighter
	// word budget. Note carries the operator's context line, if any.
	Breaking bool
	Note     string

	MinWords int
	MaxWords int
}

// WriteScript generates a monologue break script. The word budget is a
// soft instruction here; the validator enforces the hard limits.
func (c *Client) WriteScript(ctx context.Context, req *ScriptRequest) (string, error) {
	system := req.MasterPrompt
	if req.Host != nil && req.Host.StylePrompt != "" {
		system += "\n\n" + req.Host.StylePrompt
	}
	if req.Breaking {
		system += fmt.Sprintf("\n\nThis is a BREAKING NEWS break. Be more urgent. %d words max.", req.MaxWords)
	} else if req.MaxWords > 0 {
		system += fmt.Sprintf("\n\nKeep the break between %d and %d words.", req.MinWords, req.MaxWords)
	}

	maxTokens := writerMaxTokens
	if req.Quote != nil {
		system += "\n\nMarket data is provided. Report the price and the day's change " +
			"naturally as a short market note. NEVER give financial advice."
		maxTokens = writerMaxTokensMarket
	}

	user := buildContext(req) + "\n\nWrite the break now."

	script, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         param.NewOpt(0.7),
		MaxCompletionTokens: param.NewOpt(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("writing script: %w", err)
	}
	if script == "" {
		return "", fmt.Errorf("writing script: empty response")
	}
	return script, nil
}

// RewriteScript asks the model to revise a script the content filter
// rejected. The violations are quoted verbatim so the model fixes exactly
// what tripped instead of paraphrasing at random.
func (c *Client) RewriteScript(ctx context.Context, req *ScriptRequest, script string, reasons []string) (string, error) {
	system := req.MasterPrompt
	if req.Host != nil && req.Host.StylePrompt != "" {
		system += "\n\n" + req.Host.StylePrompt
	}
	system += fmt.Sprintf(
		"\n\nYour previous draft was rejected by the station's content check: %s. "+
			"Rewrite the break and fix every problem listed.",
		strings.Join(reasons, "; "))
	if req.MaxWords > 0 {
		system += fmt.Sprintf(" Keep the break between %d and %d words.", req.MinWords, req.MaxWords)
	}

	maxTokens := writerMaxTokens
	if req.Quote != nil {
		maxTokens = writerMaxTokensMarket
	}

	user := "REJECTED DRAFT:\n" + script + "\n\nWrite the corrected break now."

	revised, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         param.NewOpt(0.5),
		MaxCompletionTokens: param.NewOpt(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("rewriting script: %w", err)
	}
	if revised == "" {
		return "", fmt.Errorf("rewriting script: empty response")
	}
	return revised, nil
}

// DialogRequest carries everything the dialog writer needs. Prompts maps
// character name to persona prompt, already resolved from host rows or the
// built-in defaults.
type DialogRequest struct {
	Characters []string
	Prompts    map[string]string
	Topic      string

	Weather []*weather.Observation
	Stories []Story
	Quote   *market.Quote
	Tracks  []Track

	DurationMinutes float64
}

// WriteDialog generates a structured two-host exchange and returns the raw
// script JSON. The characters array in the result is forced to the request
// list; models sometimes invent a third voice.
func (c *Client) WriteDialog(ctx context.Context, req *DialogRequest) (json.RawMessage, error) {
	lineLimit := 6
	if budget := int(req.DurationMinutes * 10); budget > lineLimit {
		lineLimit = budget
	}

	var prompts []string
	for _, name := range req.Characters {
		if p, ok := req.Prompts[name]; ok && p != "" {
			prompts = append(prompts, p)
		}
	}

	system := strings.ReplaceAll(dialogOrchestratorPrompt, "{{LINE_LIMIT}}", strconv.Itoa(lineLimit)) +
		"\n\nCHARACTERS IN THIS EPISODE:\n" + strings.Join(prompts, "\n\n")

	user := ""
	if req.Topic != "" {
		user = "TOPIC: " + req.Topic + "\n\n"
	}
	user += buildContext(&ScriptRequest{
		Weather: req.Weather,
		Stories: req.Stories,
		Quote:   req.Quote,
		Tracks:  req.Tracks,
	}) + "\n\nWrite the dialog script now."

	content, err := c.complete(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         param.NewOpt(0.8),
		MaxCompletionTokens: param.NewOpt(int64(dialogMaxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("writing dialog: %w", err)
	}

	var script map[string]any
	if err := json.Unmarshal([]byte(content), &script); err != nil {
		return nil, fmt.Errorf("writing dialog: parsing response: %w", err)
	}
	script["characters"] = req.Characters

	raw, err := json.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("writing dialog: %w", err)
	}
	return raw, nil
}

// buildContext renders the gathered data the way the model consumes it
// best: labeled sections, spoken-friendly figures, and explicit guidance
// for previously covered stories.
func buildContext(req *ScriptRequest) string {
	var parts []string

	if len(req.Tracks) > 0 {
		parts = append(parts, "RECENTLY PLAYED TRACKS (most recent first):")
		for i, track := range req.Tracks {
			if track.Artist != "" {
				parts = append(parts, fmt.Sprintf("%d. %q by %s", i+1, track.Title, track.Artist))
			} else {
				parts = append(parts, fmt.Sprintf("%d. %q", i+1, track.Title))
			}
		}
		parts = append(parts, "(Reference one or two of these naturally, e.g. \"That was ... by ...\". Do not list them all.)", "")
	}

	if len(req.Weather) > 0 {
		parts = append(parts, "WEATHER DATA:")
		for _, obs := range req.Weather {
			line := fmt.Sprintf("- %s: %s, %s, wind %.0f kph, humidity %d%%",
				obs.City, format.Temperature(obs.TempC), obs.Condition, obs.WindKph, obs.Humidity)
			if obs.Stale {
				line += " (last check)"
			}
			parts = append(parts, line)
		}
		parts = append(parts, "")
	}

	if req.Quote != nil {
		parts = append(parts, "BITCOIN MARKET DATA (report numbers only; NEVER say buy, sell, or invest):")
		line := fmt.Sprintf("- Price: %s, %s over the last 24 hours",
			format.Price(req.Quote.PriceUSD), format.Change(req.Quote.Change24h))
		if req.Quote.Stale {
			line += " (last check)"
		}
		parts = append(parts, line, "")
	}

	if len(req.Stories) > 0 {
		parts = append(parts, "SELECTED HEADLINES (scored, deduplicated):")
		hasReported := false
		for i, story := range req.Stories {
			tag := ""
			if story.PreviouslyReported {
				tag = " [PREVIOUSLY REPORTED]"
				hasReported = true
			}
			parts = append(parts, fmt.Sprintf("%d. [Score: %d]%s %s (%s)", i+1, story.Score, tag, story.Title, story.Source))
		}
		if hasReported {
			parts = append(parts,
				"(Headlines marked PREVIOUSLY REPORTED were covered in earlier breaks. "+
					"Do NOT announce them as new. Reference settled facts as established, "+
					"and give updates on developing stories.)")
		}
		parts = append(parts, "")
	}

	if req.Note != "" {
		parts = append(parts, "OPERATOR NOTE: "+req.Note, "")
	}

	if len(parts) == 0 {
		return "No weather or news data available. Give a brief station ID and return to music."
	}

	return strings.TrimRight(strings.Join(parts, "\n"), "\n")
}
