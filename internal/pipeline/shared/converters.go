// Package shared provides utilities shared between pipeline stages.
package shared

import (
	"context"
	"strings"

	"github.com/hermesradio/hermes/internal/models"
	"github.com/hermesradio/hermes/internal/pipeline/core"
	"github.com/hermesradio/hermes/internal/provider/llm"
	"github.com/hermesradio/hermes/internal/provider/weather"
	"github.com/hermesradio/hermes/internal/repository"
)

// Stories converts headline rows to the writer's story shape. IDs present
// in reported are tagged so the writer refers back to them instead of
// announcing them as new.
func Stories(headlines []*models.Headline, reported map[models.ULID]bool) []llm.Story {
	stories := make([]llm.Story, 0, len(headlines))
	for _, h := range headlines {
		score := 0
		if h.Score != nil {
			score = *h.Score
		}
		stories = append(stories, llm.Story{
			Title:              h.Title,
			Source:             h.SourceName,
			Score:              score,
			PreviouslyReported: reported[h.ID],
		})
	}
	return stories
}

// CityNames lists the city of each observation, in air order.
func CityNames(observations []*weather.Observation) []string {
	names := make([]string, 0, len(observations))
	for _, obs := range observations {
		names = append(names, obs.City)
	}
	return names
}

// DialogCast resolves the character names and persona prompts for the
// two-host writer. Operator-edited style prompts win over the built-ins.
func DialogCast(host, coHost *models.Host) ([]string, map[string]string) {
	characters := make([]string, 0, 2)
	prompts := make(map[string]string, 2)

	for _, h := range []*models.Host{host, coHost} {
		if h == nil {
			continue
		}
		name := strings.ToLower(h.Character)
		if name == "" {
			name = strings.ToLower(h.Slug)
		}
		characters = append(characters, name)

		if h.StylePrompt != "" {
			prompts[name] = h.StylePrompt
		} else if p := llm.CharacterPrompt(name); p != "" {
			prompts[name] = p
		}
	}
	return characters, prompts
}

// ScriptRequest assembles the monologue writer request from the build
// state. A settings store failure degrades to the built-in master prompt
// and is recorded as a non-fatal error.
func ScriptRequest(ctx context.Context, settings repository.SettingRepository, state *core.State) *llm.ScriptRequest {
	master, err := settings.String(ctx, models.SettingMasterPrompt, llm.DefaultMasterPrompt)
	if err != nil {
		state.AddError(err)
		master = llm.DefaultMasterPrompt
	}

	return &llm.ScriptRequest{
		Host:         state.Host,
		MasterPrompt: master,
		Weather:      state.Weather,
		Stories:      state.Stories,
		Quote:        state.Quote,
		Tracks:       state.Tracks,
		Breaking:     state.Breaking,
		Note:         state.Note,
		MinWords:     state.Budget.MinWords,
		MaxWords:     state.Budget.MaxWords,
	}
}

// Degrade walks the fallback ladder below the LM rungs and updates the
// state with whatever it produced: a template script that continues through
// synthesis, or a sting that short-circuits the remaining stages. When
// nothing is left it returns a BuildFailure carrying failReason, with cause
// attached for the log.
func Degrade(ctx context.Context, fallbacks core.FallbackSource, state *core.State, failReason string, cause error) error {
	fb, err := fallbacks.Fallback(ctx, state.Weather)
	if err != nil {
		state.Rung = models.DegradationFailed
		return core.NewBuildFailure(failReason, err)
	}

	switch fb.Level {
	case models.DegradationTemplate:
		state.Script = fb.Script
		state.DialogJSON = nil
		state.Rung = models.DegradationTemplate
		return nil
	case models.DegradationSting:
		state.StingPath = fb.StingPath
		state.DialogJSON = nil
		state.Rung = models.DegradationSting
		return nil
	default:
		state.Rung = models.DegradationFailed
		return core.NewBuildFailure(failReason, cause)
	}
}
